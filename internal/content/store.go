// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a content id is unknown.
var ErrNotFound = errors.New("content not found")

// Store holds content feature records. Implementations must be safe for
// concurrent use; readers see the latest registered snapshot per content id.
type Store interface {
	// Register upserts a feature record by content id.
	Register(ctx context.Context, f *Features) error

	// Get returns the features for a content id, or ErrNotFound.
	Get(ctx context.Context, contentID string) (*Features, error)

	// All returns every feature record.
	All(ctx context.Context) ([]*Features, error)

	// Trending returns up to limit records with TrendingScore > minScore,
	// ordered by descending trending score.
	Trending(ctx context.Context, minScore float64, limit int) ([]*Features, error)

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is the in-memory Store used for tests and standalone mode.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Features
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Features)}
}

// Register upserts a feature record by content id.
func (s *MemoryStore) Register(ctx context.Context, f *Features) error {
	if f == nil || f.ContentID == "" {
		return fmt.Errorf("register content: missing content id")
	}

	cp := *f
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	s.items[cp.ContentID] = &cp
	s.mu.Unlock()
	return nil
}

// Get returns the features for a content id, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, contentID string) (*Features, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.items[contentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentID)
	}
	cp := *f
	return &cp, nil
}

// All returns every feature record, ordered by content id for determinism.
func (s *MemoryStore) All(ctx context.Context) ([]*Features, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Features, 0, len(s.items))
	for _, f := range s.items {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

// Trending returns up to limit records above minScore, descending.
func (s *MemoryStore) Trending(ctx context.Context, minScore float64, limit int) ([]*Features, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Features, 0, limit)
	for _, f := range all {
		if f.TrendingScore > minScore {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrendingScore > out[j].TrendingScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
