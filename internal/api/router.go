// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// AllowedOrigins is the CORS allow list.
	AllowedOrigins []string

	// RateLimitRequests per RateLimitWindow per client IP, API routes only.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// HealthRateLimitRequests is the permissive limit for health probes.
	HealthRateLimitRequests int
}

// DefaultRouterConfig returns the shipped limits.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimitRequests:       300,
		RateLimitWindow:         time.Minute,
		HealthRateLimitRequests: 1000,
	}
}

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     RouterConfig
}

// NewRouter creates a router over the handler.
func NewRouter(handler *Handler, cfg RouterConfig) *Router {
	def := DefaultRouterConfig()
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = def.RateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	if cfg.HealthRateLimitRequests <= 0 {
		cfg.HealthRateLimitRequests = def.HealthRateLimitRequests
	}
	return &Router{handler: handler, cfg: cfg}
}

// Setup wires all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(router.cfg.AllowedOrigins))
	r.Use(Identity())

	h := router.handler

	// Health probes get a permissive limit so monitoring stays cheap.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(RateLimit(router.cfg.HealthRateLimitRequests, time.Minute))
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(router.cfg.RateLimitRequests, router.cfg.RateLimitWindow))
		r.Use(PrometheusMetrics())

		r.Post("/recommendations", h.Recommendations)
		r.Get("/recommendations/stats", h.RecommendStats)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Post("/events", h.RecordEvent)
			r.Put("/preferences", h.UpdatePreferences)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Post("/", h.CreateAlert)
			r.Get("/", h.ListAlerts)
			r.Get("/monitor", h.MonitorStatus)
			r.Post("/monitor/start", h.MonitorStart)
			r.Post("/monitor/stop", h.MonitorStop)
			r.Get("/{alertID}", h.GetAlert)
			r.Put("/{alertID}", h.UpdateAlert)
			r.Delete("/{alertID}", h.DeleteAlert)
		})

		r.Route("/content", func(r chi.Router) {
			r.Put("/", h.RegisterContent)
			r.Get("/{contentID}", h.GetContent)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
