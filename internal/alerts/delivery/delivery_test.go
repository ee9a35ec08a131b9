// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/alerts"
)

func notification(methods []alerts.NotificationMethod, webhookURL string) alerts.Notification {
	now := time.Now()
	return alerts.Notification{
		Alert: &alerts.Alert{
			ID:                  "alert-1",
			UserID:              "u1",
			TenantID:            "t1",
			Symbol:              "BTC",
			CoinName:            "Bitcoin",
			Condition:           alerts.ConditionAbove,
			TargetPrice:         50000,
			NotificationMethods: methods,
			WebhookURL:          webhookURL,
		},
		Price:     51000,
		Timestamp: now,
		Message:   "Bitcoin is above 50000.00 (now 51000.00)",
	}
}

func TestWebhookChannelPostsJSON(t *testing.T) {
	var received atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received.Store(p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewWebhookChannel(0)
	result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodWebhook}, server.URL))
	if !result.Success {
		t.Fatalf("send failed: %s", result.Error)
	}

	p, ok := received.Load().(webhookPayload)
	if !ok {
		t.Fatal("no payload received")
	}
	if p.AlertID != "alert-1" || p.Symbol != "BTC" || p.Price != 51000 {
		t.Errorf("payload = %+v", p)
	}
}

func TestWebhookChannelFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewWebhookChannel(0)
	result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodWebhook}, server.URL))
	if result.Success {
		t.Fatal("send succeeded against a 500 endpoint")
	}
	if result.Error == "" {
		t.Error("failure carries no error message")
	}
}

func TestWebhookChannelRejectsBadURL(t *testing.T) {
	c := NewWebhookChannel(0)
	for _, u := range []string{"", "ftp://example.com/hook", "://bad"} {
		result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodWebhook}, u))
		if result.Success {
			t.Errorf("url %q accepted", u)
		}
	}
}

func TestEmailChannelBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	c := NewEmailChannel(
		SMTPConfig{Host: "mail.example.com", Port: 587, From: "alerts@example.com"},
		func(tenantID, userID string) (string, error) { return "user@example.com", nil },
	)
	c.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodEmail}, ""))
	if !result.Success {
		t.Fatalf("send failed: %s", result.Error)
	}
	if gotAddr != "mail.example.com:587" || gotFrom != "alerts@example.com" {
		t.Errorf("addr=%q from=%q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Price alert: BTC") || !strings.Contains(msg, "Bitcoin is above") {
		t.Errorf("message = %q", msg)
	}
}

func TestEmailChannelResolverFailure(t *testing.T) {
	c := NewEmailChannel(
		SMTPConfig{Host: "mail.example.com", Port: 587, From: "alerts@example.com"},
		func(tenantID, userID string) (string, error) { return "", errors.New("unknown user") },
	)
	result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodEmail}, ""))
	if result.Success {
		t.Fatal("send succeeded without a recipient")
	}
}

// stubChannel records sends and can be told to fail.
type stubChannel struct {
	method alerts.NotificationMethod
	fail   bool
	calls  atomic.Int64
}

func (s *stubChannel) Name() alerts.NotificationMethod { return s.method }

func (s *stubChannel) Send(context.Context, alerts.Notification) *Result {
	s.calls.Add(1)
	if s.fail {
		return failureResult(s.method, errors.New("boom"))
	}
	return successResult(s.method)
}

func TestManagerFansOutToAllMethods(t *testing.T) {
	registry := NewRegistry()
	email := &stubChannel{method: alerts.MethodEmail}
	push := &stubChannel{method: alerts.MethodPush}
	webhook := &stubChannel{method: alerts.MethodWebhook}
	for _, c := range []Channel{email, push, webhook} {
		if err := registry.Register(c); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(registry, 0, zerolog.Nop())
	results := m.DispatchResults(context.Background(), notification(
		[]alerts.NotificationMethod{alerts.MethodEmail, alerts.MethodPush, alerts.MethodWebhook},
		"https://example.com/hook"))

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("%s failed: %s", r.Method, r.Error)
		}
	}
	if email.calls.Load() != 1 || push.calls.Load() != 1 || webhook.calls.Load() != 1 {
		t.Error("not every channel was called exactly once")
	}
}

func TestManagerIsolatesChannelFailures(t *testing.T) {
	registry := NewRegistry()
	email := &stubChannel{method: alerts.MethodEmail, fail: true}
	push := &stubChannel{method: alerts.MethodPush}
	if err := registry.Register(email); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(push); err != nil {
		t.Fatal(err)
	}

	m := NewManager(registry, 0, zerolog.Nop())
	results := m.DispatchResults(context.Background(), notification(
		[]alerts.NotificationMethod{alerts.MethodEmail, alerts.MethodPush}, ""))

	var emailFailed, pushDelivered bool
	for _, r := range results {
		switch r.Method {
		case alerts.MethodEmail:
			emailFailed = !r.Success
		case alerts.MethodPush:
			pushDelivered = r.Success
		}
	}
	if !emailFailed {
		t.Error("failing channel reported success")
	}
	if !pushDelivered {
		t.Error("healthy channel affected by sibling failure")
	}
}

func TestManagerUnregisteredMethod(t *testing.T) {
	m := NewManager(NewRegistry(), 0, zerolog.Nop())
	results := m.DispatchResults(context.Background(), notification(
		[]alerts.NotificationMethod{alerts.MethodPush}, ""))
	if len(results) != 1 || results[0].Success {
		t.Errorf("results = %+v, want one failure", results)
	}
}

func TestRegistryRejectsUnknownMethod(t *testing.T) {
	if err := NewRegistry().Register(&stubChannel{method: "pigeon"}); err == nil {
		t.Error("unknown method registered")
	}
}

func TestPushChannelViaGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["user_id"] != "u1" || body["title"] == "" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewPushChannel(NewHTTPPushGateway(server.URL, "secret", 0))
	result := c.Send(context.Background(), notification([]alerts.NotificationMethod{alerts.MethodPush}, ""))
	if !result.Success {
		t.Fatalf("push failed: %s", result.Error)
	}
}
