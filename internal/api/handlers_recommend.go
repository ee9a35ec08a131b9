// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coinscope/coinscope/internal/recommend"
)

// recommendTimeout bounds one recommendation computation.
const recommendTimeout = 10 * time.Second

// Recommendations handles POST /api/v1/recommendations.
// The body carries count and filters; identity comes from headers.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	var req RecommendRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if msgs := validateRequest(&req); msgs != nil {
		rw.ValidationError("invalid recommendation request", msgs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), recommendTimeout)
	defer cancel()

	recs, err := h.engine.Recommend(ctx, recommend.Request{
		UserID:   id.UserID,
		TenantID: id.TenantID,
		Count:    req.Count,
		Filters:  req.Filters,
	})
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// RecommendStats handles GET /api/v1/recommendations/stats.
// Returns engine cache counters for operational visibility.
func (h *Handler) RecommendStats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Snapshot())
}
