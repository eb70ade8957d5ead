package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"godlykids/internal/models"
)

var ErrBillingNotConfigured = errors.New("legacy billing API not configured")

// BillingStatus is the subscription state reported by the legacy billing API
type BillingStatus struct {
	Status      string     `json:"status"`
	Premium     bool       `json:"premium"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
	RenewedAt   *time.Time `json:"renewedAt,omitempty"`
}

// BillingClient queries the legacy billing API the renewal job reconciles
// against. Transient failures are retried with exponential backoff; client
// errors are not.
type BillingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBillingClient creates a new billing client
func NewBillingClient(baseURL string) *BillingClient {
	return &BillingClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsEnabled returns whether the billing API is configured
func (c *BillingClient) IsEnabled() bool {
	return c.baseURL != ""
}

// FetchStatus retrieves a user's subscription state. Users unknown to the
// billing system come back as status "none".
func (c *BillingClient) FetchStatus(ctx context.Context, userID int64) (*BillingStatus, error) {
	if !c.IsEnabled() {
		return nil, ErrBillingNotConfigured
	}

	var status *BillingStatus

	operation := func() error {
		url := fmt.Sprintf("%s/subscriptions/%d", c.baseURL, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("billing request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			status = &BillingStatus{Status: models.SubscriptionNone}
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("billing API returned status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("billing API returned status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read billing response: %w", err)
		}

		parsed := &BillingStatus{}
		if err := json.Unmarshal(body, parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode billing response: %w", err))
		}
		status = parsed
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 4), ctx)); err != nil {
		return nil, err
	}
	return status, nil
}
