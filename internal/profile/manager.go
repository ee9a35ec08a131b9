// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
)

// Manager is the write path for user profiles. It records behavior events,
// merges explicit preference updates and re-derives preferences from recent
// view history.
type Manager struct {
	store   Store
	content content.Store
	logger  zerolog.Logger
}

// NewManager creates a profile manager.
func NewManager(store Store, contentStore content.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		content: contentStore,
		logger:  logger.With().Str("component", "profile").Logger(),
	}
}

// Get returns a user's profile, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, tenantID, userID string) (*Profile, error) {
	return m.store.Get(ctx, tenantID, userID)
}

// RecordBehavior merges a behavior event into the user's profile, creating
// the profile on first contact. View events additionally re-derive preferences
// from the recent view window.
func (m *Manager) RecordBehavior(ctx context.Context, tenantID, userID string, ev Event) (*Profile, error) {
	if ev == nil {
		return nil, fmt.Errorf("record behavior: nil event")
	}

	p, err := m.store.Update(ctx, tenantID, userID, func(p *Profile) error {
		p.apply(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ev.Kind() != KindView {
		return p, nil
	}

	derived, err := m.derivePreferences(ctx, p)
	if err != nil {
		// Derivation is best effort. The event itself is already recorded.
		m.logger.Warn().Err(err).
			Str("tenant_id", tenantID).
			Str("user_id", userID).
			Msg("preference derivation failed")
		return p, nil
	}
	if derived == nil {
		return p, nil
	}

	return m.store.Update(ctx, tenantID, userID, func(p *Profile) error {
		p.Preferences.Categories = unionStrings(p.Preferences.Categories, derived.categories)
		p.Preferences.Tags = unionStrings(p.Preferences.Tags, derived.tags)
		return nil
	})
}

// UpsertProfile shallow-merges explicit preference fields into the profile,
// creating it if needed. Zero-value fields in prefs are left untouched.
func (m *Manager) UpsertProfile(ctx context.Context, tenantID, userID string, prefs Preferences) (*Profile, error) {
	return m.store.Update(ctx, tenantID, userID, func(p *Profile) error {
		if prefs.Topics != nil {
			p.Preferences.Topics = prefs.Topics
		}
		if prefs.Categories != nil {
			p.Preferences.Categories = prefs.Categories
		}
		if prefs.Tags != nil {
			p.Preferences.Tags = prefs.Tags
		}
		if prefs.Languages != nil {
			p.Preferences.Languages = prefs.Languages
		}
		if prefs.ContentTypes != nil {
			p.Preferences.ContentTypes = prefs.ContentTypes
		}
		if prefs.ReadingLevel != "" {
			p.Preferences.ReadingLevel = prefs.ReadingLevel
		}
		if prefs.UpdateFrequency != "" {
			p.Preferences.UpdateFrequency = prefs.UpdateFrequency
		}
		return nil
	})
}

// derivedPrefs holds category/tag frequencies extracted from recent views.
type derivedPrefs struct {
	categories []string
	tags       []string
}

// derivePreferences counts categories and tags across the most recent
// DeriveWindow views and returns the top DeriveTopCategories / DeriveTopTags.
// Views whose content is unknown are skipped. Returns nil when nothing was
// derived.
func (m *Manager) derivePreferences(ctx context.Context, p *Profile) (*derivedPrefs, error) {
	views := p.RecentViews(DeriveWindow)
	if len(views) == 0 {
		return nil, nil
	}

	catCounts := make(map[string]int)
	tagCounts := make(map[string]int)
	for _, v := range views {
		f, err := m.content.Get(ctx, v.ContentID)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("derive preferences: %w", err)
		}
		for _, c := range f.Categories {
			catCounts[c]++
		}
		for _, t := range f.Tags {
			tagCounts[t]++
		}
	}
	if len(catCounts) == 0 && len(tagCounts) == 0 {
		return nil, nil
	}

	return &derivedPrefs{
		categories: topByCount(catCounts, DeriveTopCategories),
		tags:       topByCount(tagCounts, DeriveTopTags),
	}, nil
}

// topByCount returns up to n keys ordered by descending count, key ascending
// on ties for determinism.
func topByCount(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// unionStrings appends values from add that are not already in base,
// preserving base order.
func unionStrings(base, add []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	out := base
	for _, s := range add {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
