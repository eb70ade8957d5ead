// Package push sends notifications to parents through the hosted push
// provider's REST API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client sends push notifications. With no API URL configured the client is
// disabled and every send becomes a logged no-op.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new push client
func NewClient(apiURL, apiKey string) *Client {
	if apiURL == "" {
		log.Println("Push notifications disabled: PUSH_API_URL not configured")
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsEnabled returns whether the push client is configured
func (c *Client) IsEnabled() bool {
	return c.apiURL != ""
}

type notification struct {
	ExternalUserID string `json:"externalUserId,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// Notify sends a notification to all of a user's registered devices
func (c *Client) Notify(ctx context.Context, externalUserID, title, body string) error {
	if !c.IsEnabled() {
		log.Printf("Skipping push (client disabled): %s to user %s", title, externalUserID)
		return nil
	}
	return c.send(ctx, notification{
		ExternalUserID: externalUserID,
		Title:          title,
		Body:           body,
	})
}

// Broadcast sends a notification to every device subscribed to a topic
func (c *Client) Broadcast(ctx context.Context, topic, title, body string) error {
	if !c.IsEnabled() {
		log.Printf("Skipping broadcast (client disabled): %s on topic %s", title, topic)
		return nil
	}
	return c.send(ctx, notification{
		Topic: topic,
		Title: title,
		Body:  body,
	})
}

func (c *Client) send(ctx context.Context, n notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push API returned status %d: %s", resp.StatusCode, detail)
	}

	log.Printf("Push sent: %s", n.Title)
	return nil
}
