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
	"time"

	"github.com/goccy/go-json"

	"github.com/coinscope/coinscope/internal/alerts"
)

// PushSender hands a push notification to the provider. Device token
// management lives with the push gateway, not here.
type PushSender interface {
	Push(ctx context.Context, tenantID, userID, title, body string) error
}

// PushChannel delivers alert notifications through a PushSender.
type PushChannel struct {
	sender PushSender
}

// NewPushChannel creates the push channel.
func NewPushChannel(sender PushSender) *PushChannel {
	return &PushChannel{sender: sender}
}

// Name implements Channel.
func (c *PushChannel) Name() alerts.NotificationMethod { return alerts.MethodPush }

// Send implements Channel.
func (c *PushChannel) Send(ctx context.Context, n alerts.Notification) *Result {
	if c.sender == nil {
		return failureResult(c.Name(), fmt.Errorf("no push sender configured"))
	}

	title := fmt.Sprintf("Price alert: %s", n.Alert.Symbol)
	if err := c.sender.Push(ctx, n.Alert.TenantID, n.Alert.UserID, title, n.Message); err != nil {
		return failureResult(c.Name(), fmt.Errorf("push send: %w", err))
	}
	return successResult(c.Name())
}

// HTTPPushGateway is a PushSender POSTing to a provider-agnostic push
// gateway that owns device token routing.
type HTTPPushGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPPushGateway creates a gateway client. Zero timeout means
// defaultWebhookTimeout.
func NewHTTPPushGateway(url, apiKey string, timeout time.Duration) *HTTPPushGateway {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &HTTPPushGateway{url: url, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

// Push implements PushSender.
func (g *HTTPPushGateway) Push(ctx context.Context, tenantID, userID, title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"tenant_id": tenantID,
		"user_id":   userID,
		"title":     title,
		"body":      body,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}

var (
	_ Channel    = (*PushChannel)(nil)
	_ PushSender = (*HTTPPushGateway)(nil)
)
