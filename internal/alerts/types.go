// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package alerts implements one-shot price alerts: storage, evaluation
// against price ticks and the monitor that drives evaluation from the
// market feed with a polling fallback.
package alerts

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the alert subsystem.
var (
	// ErrValidation marks rejected alert payloads. The wrapped message
	// names the missing or invalid field.
	ErrValidation = errors.New("alert validation failed")

	// ErrNotFound is returned for unknown alert ids.
	ErrNotFound = errors.New("alert not found")
)

// Condition is the alert trigger condition.
type Condition string

// Conditions.
const (
	ConditionAbove         Condition = "above"
	ConditionBelow         Condition = "below"
	ConditionChangePercent Condition = "change_percent"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionAbove, ConditionBelow, ConditionChangePercent:
		return true
	}
	return false
}

// Timeframe is the lookback window for change_percent alerts.
type Timeframe string

// Timeframes.
const (
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe24h Timeframe = "24h"
)

// Duration returns the timeframe as a duration. Unknown timeframes return 0.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe24h:
		return 24 * time.Hour
	}
	return 0
}

// NotificationMethod selects a delivery channel.
type NotificationMethod string

// Notification methods.
const (
	MethodEmail   NotificationMethod = "email"
	MethodPush    NotificationMethod = "push"
	MethodWebhook NotificationMethod = "webhook"
)

// Valid reports whether m is a known method.
func (m NotificationMethod) Valid() bool {
	switch m {
	case MethodEmail, MethodPush, MethodWebhook:
		return true
	}
	return false
}

// Alert is a one-shot price alert. Once IsTriggered flips true the alert is
// never evaluated again; the user re-arms it by creating a new one.
type Alert struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`

	// Symbol is the asset ticker, e.g. "BTC".
	Symbol string `json:"symbol"`

	// CoinName is the display name, e.g. "Bitcoin".
	CoinName string `json:"coin_name,omitempty"`

	Condition Condition `json:"condition"`

	// TargetPrice applies to above/below conditions.
	TargetPrice float64 `json:"target_price,omitempty"`

	// ChangePercent and Timeframe apply to change_percent conditions. The
	// trigger compares absolute movement, so -5 and 5 behave identically.
	ChangePercent float64   `json:"change_percent,omitempty"`
	Timeframe     Timeframe `json:"timeframe,omitempty"`

	IsActive    bool `json:"is_active"`
	IsTriggered bool `json:"is_triggered"`

	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	TriggeredPrice float64    `json:"triggered_price,omitempty"`

	NotificationMethods []NotificationMethod `json:"notification_methods"`

	// WebhookURL is required when methods include webhook.
	WebhookURL string `json:"webhook_url,omitempty"`

	// Message optionally replaces the generated notification text.
	Message string `json:"message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks condition-specific required fields.
func (a *Alert) Validate() error {
	if a.UserID == "" || a.TenantID == "" {
		return fmt.Errorf("%w: missing user or tenant id", ErrValidation)
	}
	if a.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrValidation)
	}
	if !a.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition %q", ErrValidation, a.Condition)
	}

	switch a.Condition {
	case ConditionAbove, ConditionBelow:
		if a.TargetPrice <= 0 {
			return fmt.Errorf("%w: missing target price", ErrValidation)
		}
	case ConditionChangePercent:
		if a.ChangePercent == 0 || a.Timeframe.Duration() == 0 {
			return fmt.Errorf("%w: missing change params", ErrValidation)
		}
	}

	if len(a.NotificationMethods) == 0 {
		return fmt.Errorf("%w: missing notification method", ErrValidation)
	}
	for _, m := range a.NotificationMethods {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown notification method %q", ErrValidation, m)
		}
		if m == MethodWebhook && a.WebhookURL == "" {
			return fmt.Errorf("%w: missing webhook url", ErrValidation)
		}
	}
	return nil
}

// Notification describes one alert firing, handed to the dispatcher.
type Notification struct {
	Alert     *Alert    `json:"alert"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
