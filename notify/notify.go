// Package notify sends best-effort push notifications. Delivery failures
// are the caller's to log and ignore; a missed notification must never
// fail the operation that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sendTimeout = 10 * time.Second

// Sender delivers a notification to a user's devices.
type Sender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// WebhookSender posts notifications to a configured push-gateway webhook.
type WebhookSender struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewWebhookSender(endpoint, apiKey string) *WebhookSender {
	return &WebhookSender{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

type notificationPayload struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (s *WebhookSender) Send(ctx context.Context, userID, title, body string) error {
	if s.endpoint == "" {
		return fmt.Errorf("notification endpoint not configured")
	}

	payload, err := json.Marshal(notificationPayload{UserID: userID, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
