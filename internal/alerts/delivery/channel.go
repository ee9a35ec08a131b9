// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package delivery implements the alert notification channels: email, push
// and webhook. Each channel implements the Channel interface; the Manager
// fans a firing out to every method the alert requests and records
// per-channel results without failing the others.
package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coinscope/coinscope/internal/alerts"
)

// Channel delivers one notification over one transport.
type Channel interface {
	// Name returns the method this channel serves.
	Name() alerts.NotificationMethod

	// Send delivers the notification. Delivery problems are captured in
	// the result; a non-nil error means the channel itself is unusable.
	Send(ctx context.Context, n alerts.Notification) *Result
}

// Result records one delivery attempt.
type Result struct {
	Method      alerts.NotificationMethod `json:"method"`
	Success     bool                      `json:"success"`
	Error       string                    `json:"error,omitempty"`
	DeliveredAt *time.Time                `json:"delivered_at,omitempty"`
}

func successResult(method alerts.NotificationMethod) *Result {
	now := time.Now()
	return &Result{Method: method, Success: true, DeliveredAt: &now}
}

func failureResult(method alerts.NotificationMethod, err error) *Result {
	return &Result{Method: method, Error: err.Error()}
}

// Registry holds the available channels by method.
type Registry struct {
	mu       sync.RWMutex
	channels map[alerts.NotificationMethod]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[alerts.NotificationMethod]Channel)}
}

// Register adds or replaces a channel.
func (r *Registry) Register(c Channel) error {
	if c == nil {
		return fmt.Errorf("register: nil channel")
	}
	if !c.Name().Valid() {
		return fmt.Errorf("register: unknown method %q", c.Name())
	}

	r.mu.Lock()
	r.channels[c.Name()] = c
	r.mu.Unlock()
	return nil
}

// Get returns the channel for a method.
func (r *Registry) Get(method alerts.NotificationMethod) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[method]
	return c, ok
}
