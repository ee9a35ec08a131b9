// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/alerts"
	"github.com/coinscope/coinscope/internal/metrics"
)

// defaultDispatchTimeout bounds one full fan-out.
const defaultDispatchTimeout = 30 * time.Second

// Manager fans one alert firing out to every notification method the alert
// requests, concurrently. A failing channel is logged and counted; it never
// affects the other channels or the already-committed trigger.
type Manager struct {
	registry *Registry
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewManager creates a dispatch manager over the registry. Zero timeout
// means defaultDispatchTimeout.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(registry *Registry, timeout time.Duration, logger zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Manager{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With().Str("component", "alerts.delivery").Logger(),
	}
}

// Dispatch implements alerts.Dispatcher.
func (m *Manager) Dispatch(ctx context.Context, n alerts.Notification) {
	m.DispatchResults(ctx, n)
}

// DispatchResults delivers the notification and returns per-channel
// results, one per requested method.
func (m *Manager) DispatchResults(ctx context.Context, n alerts.Notification) []*Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*Result, 0, len(n.Alert.NotificationMethods))
	)

	for _, method := range n.Alert.NotificationMethods {
		wg.Add(1)
		go func(method alerts.NotificationMethod) {
			defer wg.Done()

			result := m.sendOne(ctx, method, n)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(method)
	}
	wg.Wait()

	return results
}

func (m *Manager) sendOne(ctx context.Context, method alerts.NotificationMethod, n alerts.Notification) *Result {
	channel, ok := m.registry.Get(method)
	if !ok {
		metrics.NotificationsSent.WithLabelValues(string(method), "error").Inc()
		m.logger.Error().
			Str("method", string(method)).
			Str("alert_id", n.Alert.ID).
			Msg("no channel registered for method")
		return &Result{Method: method, Error: "no channel registered"}
	}

	result := channel.Send(ctx, n)
	if result.Success {
		metrics.NotificationsSent.WithLabelValues(string(method), "ok").Inc()
		m.logger.Info().
			Str("method", string(method)).
			Str("alert_id", n.Alert.ID).
			Str("symbol", n.Alert.Symbol).
			Msg("notification delivered")
	} else {
		metrics.NotificationsSent.WithLabelValues(string(method), "error").Inc()
		m.logger.Error().
			Str("method", string(method)).
			Str("alert_id", n.Alert.ID).
			Str("error", result.Error).
			Msg("notification delivery failed")
	}
	return result
}

var _ alerts.Dispatcher = (*Manager)(nil)
