// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinscope/coinscope/internal/alerts"
	"github.com/coinscope/coinscope/internal/entitlement"
)

// CreateAlert handles POST /api/v1/alerts. Ownership comes from the
// forwarded identity; any ids in the body are overwritten.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}
	if !h.entitlements.HasFeature(id.TenantID, entitlement.FeaturePriceAlerts) {
		rw.Forbidden("price alerts are not included in this plan")
		return
	}

	var a alerts.Alert
	if err := decodeJSON(r, &a); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	a.UserID = id.UserID
	a.TenantID = id.TenantID

	created, err := h.alerts.Create(r.Context(), &a)
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Created(created)
}

// ListAlerts handles GET /api/v1/alerts, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	list, err := h.alerts.GetUserAlerts(r.Context(), id.TenantID, id.UserID)
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	if list == nil {
		list = []*alerts.Alert{}
	}
	rw.Success(map[string]interface{}{
		"alerts": list,
		"count":  len(list),
	})
}

// GetAlert handles GET /api/v1/alerts/{alertID}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	a, err := h.alerts.Get(r.Context(), id.TenantID, id.UserID, chi.URLParam(r, "alertID"))
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(a)
}

// UpdateAlert handles PUT /api/v1/alerts/{alertID}. Trigger state and
// ownership cannot be changed through this endpoint.
func (h *Handler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	var a alerts.Alert
	if err := decodeJSON(r, &a); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	a.ID = chi.URLParam(r, "alertID")

	updated, err := h.alerts.Update(r.Context(), id.TenantID, id.UserID, &a)
	if err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(updated)
}

// DeleteAlert handles DELETE /api/v1/alerts/{alertID}.
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := requireUser(rw, r)
	if !ok {
		return
	}

	if err := h.alerts.Delete(r.Context(), id.TenantID, id.UserID, chi.URLParam(r, "alertID")); err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.NoContent()
}

// MonitorStatus handles GET /api/v1/alerts/monitor.
func (h *Handler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.alerts.Monitor().Status())
}

// MonitorStart handles POST /api/v1/alerts/monitor/start.
func (h *Handler) MonitorStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.alerts.Monitor().Start(r.Context()); err != nil {
		h.writeDomainError(rw, err)
		return
	}
	rw.Success(h.alerts.Monitor().Status())
}

// MonitorStop handles POST /api/v1/alerts/monitor/stop.
func (h *Handler) MonitorStop(w http.ResponseWriter, r *http.Request) {
	h.alerts.Monitor().Stop()
	NewResponseWriter(w, r).Success(h.alerts.Monitor().Status())
}
