// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package metrics provides Prometheus instrumentation for Coinscope:
// recommendation latency and outcomes, market tick throughput, alert
// triggers, and notification delivery results.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation engine metrics.

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "cold_start", "denied", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Recommendation response cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Recommendation response cache misses",
		},
	)

	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_strategy_failures_total",
			Help: "Recommendation strategy failures by strategy name",
		},
		[]string{"strategy"},
	)

	// Alert monitor metrics.

	TicksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_ticks_processed_total",
			Help: "Price ticks processed by the alert monitor",
		},
	)

	TicksStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_ticks_stale_skipped_total",
			Help: "Polling evaluations skipped due to stale cached prices",
		},
	)

	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Alerts fired by condition type",
		},
		[]string{"condition"},
	)

	AlertEvalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_evaluation_errors_total",
			Help: "Per-alert evaluation errors caught by the monitor",
		},
	)

	// Notification delivery metrics.

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // outcome: "ok", "error"
	)

	// API metrics.

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "API requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)
