// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/coinscope/coinscope/internal/alerts"
)

// defaultWebhookTimeout bounds one webhook POST.
const defaultWebhookTimeout = 10 * time.Second

// webhookPayload is the JSON body POSTed to the alert's webhook URL.
type webhookPayload struct {
	AlertID   string    `json:"alert_id"`
	Symbol    string    `json:"symbol"`
	CoinName  string    `json:"coin_name,omitempty"`
	Condition string    `json:"condition"`
	Price     float64   `json:"price"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookChannel POSTs alert firings to the URL stored on the alert.
type WebhookChannel struct {
	client *http.Client
}

// NewWebhookChannel creates the webhook channel. Zero timeout means
// defaultWebhookTimeout.
func NewWebhookChannel(timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookChannel{client: &http.Client{Timeout: timeout}}
}

// Name implements Channel.
func (c *WebhookChannel) Name() alerts.NotificationMethod { return alerts.MethodWebhook }

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, n alerts.Notification) *Result {
	if err := validateWebhookURL(n.Alert.WebhookURL); err != nil {
		return failureResult(c.Name(), err)
	}

	body, err := json.Marshal(webhookPayload{
		AlertID:   n.Alert.ID,
		Symbol:    n.Alert.Symbol,
		CoinName:  n.Alert.CoinName,
		Condition: string(n.Alert.Condition),
		Price:     n.Price,
		Message:   n.Message,
		Timestamp: n.Timestamp,
	})
	if err != nil {
		return failureResult(c.Name(), fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Alert.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return failureResult(c.Name(), fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "coinscope-alerts/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return failureResult(c.Name(), fmt.Errorf("webhook post: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failureResult(c.Name(), fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
	return successResult(c.Name())
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("missing webhook url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url must be http or https")
	}
	return nil
}

var _ Channel = (*WebhookChannel)(nil)
