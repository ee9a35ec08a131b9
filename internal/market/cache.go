// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultHistoryRetention covers the longest alert timeframe (24h) with an
// hour of slack for sampling at the window edge.
const DefaultHistoryRetention = 25 * time.Hour

// PriceCache stores recent ticks per symbol. Implementations must be safe
// for concurrent use.
type PriceCache interface {
	// Put records a tick. Older history beyond the retention window may be
	// dropped.
	Put(ctx context.Context, t Tick) error

	// Last returns the most recent tick for a symbol.
	Last(ctx context.Context, symbol string) (Tick, bool, error)

	// At returns the nearest tick at or before the given time. The second
	// return is false when no history that old exists.
	At(ctx context.Context, symbol string, at time.Time) (Tick, bool, error)

	// Symbols returns every symbol with at least one cached tick.
	Symbols(ctx context.Context) ([]string, error)
}

// MemoryPriceCache is the default single-instance PriceCache.
type MemoryPriceCache struct {
	retention time.Duration

	mu      sync.RWMutex
	history map[string][]Tick // ascending by timestamp
}

// NewMemoryPriceCache creates a cache with the given history retention.
// Zero retention means DefaultHistoryRetention.
func NewMemoryPriceCache(retention time.Duration) *MemoryPriceCache {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return &MemoryPriceCache{
		retention: retention,
		history:   make(map[string][]Tick),
	}
}

// Put records a tick and prunes history older than the retention window.
// Out-of-order ticks are inserted in timestamp order.
func (c *MemoryPriceCache) Put(ctx context.Context, t Tick) error {
	if err := t.Validate(); err != nil {
		return err
	}
	symbol := NormalizeSymbol(t.Symbol)
	t.Symbol = symbol

	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.history[symbol]
	i := sort.Search(len(h), func(i int) bool { return h[i].Timestamp.After(t.Timestamp) })
	h = append(h, Tick{})
	copy(h[i+1:], h[i:])
	h[i] = t

	cutoff := t.Timestamp.Add(-c.retention)
	start := 0
	for start < len(h)-1 && h[start].Timestamp.Before(cutoff) {
		start++
	}
	c.history[symbol] = h[start:]
	return nil
}

// Last returns the most recent tick for a symbol.
func (c *MemoryPriceCache) Last(ctx context.Context, symbol string) (Tick, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[NormalizeSymbol(symbol)]
	if len(h) == 0 {
		return Tick{}, false, nil
	}
	return h[len(h)-1], true, nil
}

// At returns the nearest tick at or before the given time.
func (c *MemoryPriceCache) At(ctx context.Context, symbol string, at time.Time) (Tick, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[NormalizeSymbol(symbol)]
	// First index strictly after the target; the answer precedes it.
	i := sort.Search(len(h), func(i int) bool { return h[i].Timestamp.After(at) })
	if i == 0 {
		return Tick{}, false, nil
	}
	return h[i-1], true, nil
}

// Symbols returns every cached symbol, sorted.
func (c *MemoryPriceCache) Symbols(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.history))
	for s := range c.history {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

var _ PriceCache = (*MemoryPriceCache)(nil)
