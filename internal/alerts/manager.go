// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/market"
)

// Manager is the user-facing alert API: validated CRUD plus keeping the
// monitor running and watching the right symbols.
type Manager struct {
	store   Store
	monitor *Monitor
	logger  zerolog.Logger
}

// NewManager creates an alert manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(store Store, monitor *Monitor, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		monitor: monitor,
		logger:  logger.With().Str("component", "alerts.manager").Logger(),
	}
}

// Create validates and persists a new alert. The id, timestamps, active
// flag and cleared trigger state are set here; client-supplied values for
// them are ignored. Creating an alert starts the monitor when it is not
// running and subscribes its symbol.
func (m *Manager) Create(ctx context.Context, a *Alert) (*Alert, error) {
	cp := *a
	cp.Symbol = market.NormalizeSymbol(cp.Symbol)
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	cp.ID = uuid.NewString()
	cp.IsActive = true
	cp.IsTriggered = false
	cp.TriggeredAt = nil
	cp.TriggeredPrice = 0
	cp.CreatedAt = now
	cp.UpdatedAt = now

	if err := m.store.Create(ctx, &cp); err != nil {
		return nil, err
	}

	if err := m.monitor.Start(ctx); err != nil {
		m.logger.Error().Err(err).Msg("monitor start failed")
	} else if err := m.monitor.Watch(cp.Symbol); err != nil {
		m.logger.Error().Err(err).Str("symbol", cp.Symbol).Msg("symbol watch failed")
	}

	m.logger.Info().
		Str("alert_id", cp.ID).
		Str("symbol", cp.Symbol).
		Str("condition", string(cp.Condition)).
		Msg("alert created")
	return &cp, nil
}

// Get returns an alert owned by the user, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, tenantID, userID, id string) (*Alert, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TenantID != tenantID || a.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// Update replaces an alert's settings. Ownership, creation time and trigger
// state are preserved from the stored record; updating re-validates and
// keeps the monitor watching the (possibly new) symbol.
func (m *Manager) Update(ctx context.Context, tenantID, userID string, a *Alert) (*Alert, error) {
	existing, err := m.Get(ctx, tenantID, userID, a.ID)
	if err != nil {
		return nil, err
	}

	cp := *a
	cp.Symbol = market.NormalizeSymbol(cp.Symbol)
	cp.UserID = existing.UserID
	cp.TenantID = existing.TenantID
	cp.IsTriggered = existing.IsTriggered
	cp.TriggeredAt = existing.TriggeredAt
	cp.TriggeredPrice = existing.TriggeredPrice
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()

	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, &cp); err != nil {
		return nil, err
	}

	if cp.IsActive && !cp.IsTriggered {
		if err := m.monitor.Start(ctx); err != nil {
			m.logger.Error().Err(err).Msg("monitor start failed")
		} else if err := m.monitor.Watch(cp.Symbol); err != nil {
			m.logger.Error().Err(err).Str("symbol", cp.Symbol).Msg("symbol watch failed")
		}
	}
	return &cp, nil
}

// Delete removes a user's alert.
func (m *Manager) Delete(ctx context.Context, tenantID, userID, id string) error {
	if _, err := m.Get(ctx, tenantID, userID, id); err != nil {
		return err
	}
	return m.store.Delete(ctx, id)
}

// GetUserAlerts returns a user's alerts, newest first.
func (m *Manager) GetUserAlerts(ctx context.Context, tenantID, userID string) ([]*Alert, error) {
	return m.store.ListByUser(ctx, tenantID, userID)
}

// Monitor exposes the monitor for status and lifecycle endpoints.
func (m *Manager) Monitor() *Monitor { return m.monitor }
