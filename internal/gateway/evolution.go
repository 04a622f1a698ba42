// Package gateway talks to an Evolution API compatible WhatsApp gateway.
// The channel is treated as a plain capability: send text to a phone number,
// report success or failure.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when gateway credentials are missing
var ErrNotConfigured = errors.New("chat gateway is not configured")

// Client is an Evolution API client
type Client struct {
	baseURL  string
	instance string
	apiKey   string
	http     *http.Client
}

// NewClient creates a gateway client from explicit configuration
func NewClient(baseURL, instance, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		instance: instance,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type sendTextRequest struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	LinkPreview bool   `json:"linkPreview"`
}

type presenceRequest struct {
	Number  string          `json:"number"`
	Options presenceOptions `json:"options"`
}

type presenceOptions struct {
	Presence string `json:"presence"`
	Delay    int    `json:"delay"`
}

// SendText delivers a text message. The raw gateway response body is returned
// even on failure so callers can keep it for the audit trail.
func (c *Client) SendText(ctx context.Context, number, text string, linkPreview bool) (string, error) {
	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	return c.post(ctx, url, sendTextRequest{
		Number:      number,
		Text:        text,
		LinkPreview: linkPreview,
	})
}

// SendPresence signals "composing" before a message, mimicking a human
// typing. Best-effort; callers are expected to ignore failures.
func (c *Client) SendPresence(ctx context.Context, number string) error {
	url := fmt.Sprintf("%s/chat/sendPresence/%s", c.baseURL, c.instance)
	_, err := c.post(ctx, url, presenceRequest{
		Number: number,
		Options: presenceOptions{
			Presence: "composing",
			Delay:    2000,
		},
	})
	return err
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) (string, error) {
	if c.baseURL == "" || c.instance == "" || c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(raw), fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	return string(raw), nil
}
