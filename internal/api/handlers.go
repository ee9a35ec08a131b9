// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/alerts"
	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/entitlement"
	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
)

// Handler bundles the domain services behind the HTTP surface.
type Handler struct {
	engine       *recommend.Engine
	profiles     *profile.Manager
	alerts       *alerts.Manager
	content      content.Store
	entitlements entitlement.Checker
	logger       zerolog.Logger
}

// NewHandler creates the API handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(
	engine *recommend.Engine,
	profiles *profile.Manager,
	alertManager *alerts.Manager,
	contentStore content.Store,
	entitlements entitlement.Checker,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		engine:       engine,
		profiles:     profiles,
		alerts:       alertManager,
		content:      contentStore,
		entitlements: entitlements,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// writeDomainError maps domain sentinel errors onto HTTP statuses. Anything
// unmapped is a 500 with the detail kept out of the response body.
func (h *Handler) writeDomainError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerts.ErrValidation):
		rw.ValidationError(err.Error(), nil)
	case errors.Is(err, alerts.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, content.ErrNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, recommend.ErrFeatureNotAvailable):
		rw.Forbidden(err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		rw.InternalError("internal error")
	}
}
