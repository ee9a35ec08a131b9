// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/coinscope/coinscope/internal/market"
	"github.com/coinscope/coinscope/internal/storage/kv"
)

// Store persists alerts. Implementations must be safe for concurrent use;
// MarkTriggered must be a compare-and-set so exactly one evaluation wins.
type Store interface {
	// Create persists a new alert. The id must be unset-unique.
	Create(ctx context.Context, a *Alert) error

	// Get returns an alert by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Alert, error)

	// Save replaces an existing alert, or returns ErrNotFound.
	Save(ctx context.Context, a *Alert) error

	// Delete removes an alert, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListByUser returns a user's alerts, newest first.
	ListByUser(ctx context.Context, tenantID, userID string) ([]*Alert, error)

	// ActiveBySymbol returns active untriggered alerts for a symbol.
	ActiveBySymbol(ctx context.Context, symbol string) ([]*Alert, error)

	// ActiveSymbols returns every symbol with at least one active
	// untriggered alert.
	ActiveSymbols(ctx context.Context) ([]string, error)

	// MarkTriggered flips IsTriggered with compare-and-set semantics. It
	// returns false when the alert was already triggered or inactive.
	MarkTriggered(ctx context.Context, id string, price float64, at time.Time) (bool, error)

	// Close releases underlying resources.
	Close() error
}

const alertKeyPrefix = "alert/"

func alertKey(id string) string { return alertKeyPrefix + id }

// KVStore is a Store over a key-value backend. With the in-memory backend it
// serves tests and standalone mode; with Badger it is the persistent store.
type KVStore struct {
	kv kv.Store
}

// NewKVStore wraps a key-value backend as an alert store.
func NewKVStore(backend kv.Store) *KVStore {
	return &KVStore{kv: backend}
}

// Create implements Store.
func (s *KVStore) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing alert id", ErrValidation)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.ID, err)
	}
	if err := s.kv.Set(ctx, alertKey(a.ID), raw); err != nil {
		return fmt.Errorf("create alert %s: %w", a.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *KVStore) Get(ctx context.Context, id string) (*Alert, error) {
	raw, err := s.kv.Get(ctx, alertKey(id))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}
	return decodeAlert(raw)
}

// Save implements Store.
func (s *KVStore) Save(ctx context.Context, a *Alert) error {
	err := s.kv.Update(ctx, alertKey(a.ID), func(raw []byte) ([]byte, error) {
		if raw == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, a.ID)
		}
		return json.Marshal(a)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("save alert %s: %w", a.ID, err)
	}
	return nil
}

// Delete implements Store.
func (s *KVStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, alertKey(id)); err != nil {
		return fmt.Errorf("delete alert %s: %w", id, err)
	}
	return nil
}

// ListByUser implements Store.
func (s *KVStore) ListByUser(ctx context.Context, tenantID, userID string) ([]*Alert, error) {
	alerts, err := s.scan(ctx, func(a *Alert) bool {
		return a.TenantID == tenantID && a.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// ActiveBySymbol implements Store.
func (s *KVStore) ActiveBySymbol(ctx context.Context, symbol string) ([]*Alert, error) {
	symbol = market.NormalizeSymbol(symbol)
	return s.scan(ctx, func(a *Alert) bool {
		return a.IsActive && !a.IsTriggered && market.NormalizeSymbol(a.Symbol) == symbol
	})
}

// ActiveSymbols implements Store.
func (s *KVStore) ActiveSymbols(ctx context.Context) ([]string, error) {
	alerts, err := s.scan(ctx, func(a *Alert) bool {
		return a.IsActive && !a.IsTriggered
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, a := range alerts {
		symbol := market.NormalizeSymbol(a.Symbol)
		if _, ok := seen[symbol]; !ok {
			seen[symbol] = struct{}{}
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

// MarkTriggered implements Store. The read-modify-write runs atomically in
// the backend, so concurrent evaluations of the same alert race safely and
// exactly one observes the flip.
func (s *KVStore) MarkTriggered(ctx context.Context, id string, price float64, at time.Time) (bool, error) {
	var won bool
	err := s.kv.Update(ctx, alertKey(id), func(raw []byte) ([]byte, error) {
		if raw == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		a, err := decodeAlert(raw)
		if err != nil {
			return nil, err
		}
		if a.IsTriggered || !a.IsActive {
			won = false
			return raw, nil
		}

		won = true
		a.IsTriggered = true
		a.TriggeredAt = &at
		a.TriggeredPrice = price
		a.UpdatedAt = time.Now()
		return json.Marshal(a)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("mark triggered %s: %w", id, err)
	}
	return won, nil
}

// Close implements Store.
func (s *KVStore) Close() error { return s.kv.Close() }

func (s *KVStore) scan(ctx context.Context, keep func(*Alert) bool) ([]*Alert, error) {
	var out []*Alert
	err := s.kv.Scan(ctx, alertKeyPrefix, func(key string, raw []byte) error {
		a, err := decodeAlert(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if keep(a) {
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan alerts: %w", err)
	}
	return out, nil
}

func decodeAlert(raw []byte) (*Alert, error) {
	var a Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	return &a, nil
}

var _ Store = (*KVStore)(nil)
