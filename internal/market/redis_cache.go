// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.
const (
	redisSymbolsKey   = "market:symbols"
	redisHistoryKeyFm = "market:history:%s"
)

// RedisPriceCache is a PriceCache shared across instances. History per
// symbol lives in a sorted set scored by tick timestamp (unix ms), so Last
// and At are single range queries.
type RedisPriceCache struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisPriceCache creates a Redis-backed cache. Zero retention means
// DefaultHistoryRetention.
func NewRedisPriceCache(client *redis.Client, retention time.Duration) *RedisPriceCache {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return &RedisPriceCache{client: client, retention: retention}
}

func historyKey(symbol string) string {
	return fmt.Sprintf(redisHistoryKeyFm, NormalizeSymbol(symbol))
}

// Put records a tick and prunes history beyond the retention window.
func (c *RedisPriceCache) Put(ctx context.Context, t Tick) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.Symbol = NormalizeSymbol(t.Symbol)

	payload, err := EncodeTick(t)
	if err != nil {
		return fmt.Errorf("encode tick: %w", err)
	}

	key := historyKey(t.Symbol)
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(t.Timestamp.UnixMilli()), Member: payload})
	pipe.ZRemRangeByScore(ctx, key, "-inf",
		strconv.FormatInt(t.Timestamp.Add(-c.retention).UnixMilli(), 10))
	pipe.SAdd(ctx, redisSymbolsKey, t.Symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache tick %s: %w", t.Symbol, err)
	}
	return nil
}

// Last returns the most recent tick for a symbol.
func (c *RedisPriceCache) Last(ctx context.Context, symbol string) (Tick, bool, error) {
	return c.newestBefore(ctx, symbol, "+inf")
}

// At returns the nearest tick at or before the given time.
func (c *RedisPriceCache) At(ctx context.Context, symbol string, at time.Time) (Tick, bool, error) {
	return c.newestBefore(ctx, symbol, strconv.FormatInt(at.UnixMilli(), 10))
}

func (c *RedisPriceCache) newestBefore(ctx context.Context, symbol, max string) (Tick, bool, error) {
	vals, err := c.client.ZRevRangeByScore(ctx, historyKey(symbol), &redis.ZRangeBy{
		Min: "-inf", Max: max, Count: 1,
	}).Result()
	if err != nil {
		return Tick{}, false, fmt.Errorf("query history for %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return Tick{}, false, nil
	}

	t, err := DecodeTick([]byte(vals[0]))
	if err != nil {
		return Tick{}, false, err
	}
	return t, true, nil
}

// Symbols returns every symbol that has ever been cached.
func (c *RedisPriceCache) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := c.client.SMembers(ctx, redisSymbolsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cached symbols: %w", err)
	}
	return symbols, nil
}

var _ PriceCache = (*RedisPriceCache)(nil)
