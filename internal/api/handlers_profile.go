// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"io"
	"net/http"
)

// GetProfile handles GET /api/v1/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	p, err := h.profiles.Get(r.Context(), id.TenantID, id.UserID)
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(p)
}

// RecordEvent handles POST /api/v1/profile/events. The body is a tagged
// union selected by its kind field; recording a view also refreshes the
// derived preferences.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		rw.BadRequest("unreadable request body")
		return
	}

	ev, err := decodeEvent(raw)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	p, err := h.profiles.RecordBehavior(r.Context(), id.TenantID, id.UserID, ev)
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}

	rw.Success(map[string]interface{}{
		"kind":       ev.Kind(),
		"updated_at": p.UpdatedAt,
	})
}

// UpdatePreferences handles PUT /api/v1/profile/preferences. Provided
// fields overwrite; omitted fields keep their stored values.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	var req PreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if msgs := validateRequest(&req); msgs != nil {
		rw.ValidationError("invalid preferences", msgs)
		return
	}

	p, err := h.profiles.UpsertProfile(r.Context(), id.TenantID, id.UserID, req.toPreferences())
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(p)
}
