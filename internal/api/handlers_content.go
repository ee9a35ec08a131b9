// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinscope/coinscope/internal/content"
)

// RegisterContent handles PUT /api/v1/content. The ingestion pipeline
// upserts feature snapshots here; a successful write invalidates the
// recommendation cache so new features take effect immediately.
func (h *Handler) RegisterContent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var f content.Features
	if err := decodeJSON(r, &f); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if f.ContentID == "" {
		rw.BadRequest("missing content_id")
		return
	}
	if f.Type != "" && !f.Type.Valid() {
		rw.BadRequest("unknown content type " + string(f.Type))
		return
	}

	if err := h.content.Register(r.Context(), &f); err != nil {
		h.writeDomainError(rw, err)
		return
	}
	h.engine.InvalidateCache()

	rw.Success(map[string]string{"content_id": f.ContentID})
}

// GetContent handles GET /api/v1/content/{contentID}.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	f, err := h.content.Get(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(f)
}
