// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"net/http"
	"time"
)

// Health handles GET /api/v1/health. Reports per-component status; the
// service is degraded rather than down when the alert monitor is stopped.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	monitor := h.alerts.Monitor().Status()

	status := "ok"
	if !monitor.Running {
		status = "degraded"
	}

	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"components": map[string]interface{}{
			"alert_monitor": monitor,
			"recommend":     h.engine.Snapshot(),
		},
	})
}

// HealthLive handles GET /api/v1/health/live. Process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady handles GET /api/v1/health/ready. Ready once the content
// store answers; recommendation requests need nothing else warm.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, err := h.content.All(r.Context()); err != nil {
		rw.ServiceUnavailable("content store unavailable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
