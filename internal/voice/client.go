// Package voice narrates story text through the voice-cloning service.
// Each unlockable narration voice maps to a reference speaker sample the
// service clones; generated WAVs are cached on disk keyed by voice and text.
package voice

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var ErrNotConfigured = errors.New("voice service not configured")

const generateTimeout = 2 * time.Minute // cloning is slow on CPU hosts

// Client talks to the voice-cloning TTS service
type Client struct {
	baseURL    string
	audioDir   string
	httpClient *http.Client
}

// NewClient creates a new voice client. With no base URL configured every
// call returns ErrNotConfigured and callers fall back to silent mode.
func NewClient(baseURL, audioDir string) *Client {
	return &Client{
		baseURL:  baseURL,
		audioDir: audioDir,
		httpClient: &http.Client{
			Timeout: generateTimeout,
		},
	}
}

// IsEnabled returns whether the voice service is configured
func (c *Client) IsEnabled() bool {
	return c.baseURL != ""
}

// Narrate synthesizes text in the given voice and returns the cached WAV
// filename (not full path). speakerSample is the path of the reference
// recording for the voice, sent to the service for cloning.
func (c *Client) Narrate(ctx context.Context, text, language, voiceID, speakerSample string) (string, error) {
	if !c.IsEnabled() {
		return "", ErrNotConfigured
	}

	filename := cacheFilename(voiceID, language, text)
	fullPath := filepath.Join(c.audioDir, filename)

	if _, err := os.Stat(fullPath); err == nil {
		return filename, nil
	}

	if err := c.generate(ctx, text, language, speakerSample, fullPath); err != nil {
		return "", fmt.Errorf("failed to narrate: %w", err)
	}
	return filename, nil
}

// generate calls POST /generate with a multipart body of text, language and
// the speaker reference recording, and writes the returned WAV to outputPath.
func (c *Client) generate(ctx context.Context, text, language, speakerSample, outputPath string) error {
	sample, err := os.Open(speakerSample)
	if err != nil {
		return fmt.Errorf("failed to open speaker sample: %w", err)
	}
	defer sample.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("text", text); err != nil {
		return fmt.Errorf("failed to write text field: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return fmt.Errorf("failed to write language field: %w", err)
	}

	part, err := writer.CreateFormFile("speaker_wav", filepath.Base(speakerSample))
	if err != nil {
		return fmt.Errorf("failed to create speaker part: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return fmt.Errorf("failed to copy speaker sample: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("voice service returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.audioDir, 0755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	// write to a temp file first so a failed download never leaves a
	// truncated WAV in the cache
	tmp, err := os.CreateTemp(c.audioDir, "narrate-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("failed to move audio into cache: %w", err)
	}
	return nil
}

// cacheFilename derives a stable filename from voice, language and text
func cacheFilename(voiceID, language, text string) string {
	sum := sha256.Sum256([]byte(voiceID + "\x00" + language + "\x00" + text))
	return fmt.Sprintf("%s_%s.wav", voiceID, hex.EncodeToString(sum[:8]))
}
