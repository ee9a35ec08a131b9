// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/entitlement"
	"github.com/coinscope/coinscope/internal/metrics"
	"github.com/coinscope/coinscope/internal/profile"
)

// defaultCacheTTL is how long a cached response stays valid.
const defaultCacheTTL = 5 * time.Minute

// Engine coordinates the strategies and produces the final recommendation
// list. It is safe for concurrent use.
type Engine struct {
	strategies   []Strategy
	weights      Weights
	profiles     profile.Store
	catalog      content.Store
	entitlements entitlement.Checker
	logger       zerolog.Logger

	cacheTTL time.Duration
	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

type cacheEntry struct {
	recs      []Recommendation
	expiresAt time.Time
}

// EngineOption tweaks engine construction.
type EngineOption func(*Engine)

// WithCacheTTL overrides the response cache TTL. Zero disables caching.
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) { e.cacheTTL = ttl }
}

// WithWeights overrides the strategy weights.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// NewEngine creates an engine over the given strategies. The trending
// strategy must be among them; it alone serves cold-start users.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(
	strategies []Strategy,
	profiles profile.Store,
	catalog content.Store,
	entitlements entitlement.Checker,
	logger zerolog.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	e := &Engine{
		strategies:   strategies,
		weights:      DefaultWeights(),
		profiles:     profiles,
		catalog:      catalog,
		entitlements: entitlements,
		logger:       logger.With().Str("component", "recommend").Logger(),
		cacheTTL:     defaultCacheTTL,
		cache:        make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.strategyByName(StrategyTrending) == nil {
		return nil, fmt.Errorf("engine requires the %s strategy", StrategyTrending)
	}
	return e, nil
}

// Recommend produces up to req.Count recommendations for the user. The
// entitlement gate runs before any computation; users without a profile get
// trending content only. The request never mutates stored state.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if req.UserID == "" || req.TenantID == "" {
		e.errorCount.Add(1)
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("recommend: user and tenant ids are required")
	}
	if !e.entitlements.HasFeature(req.TenantID, entitlement.FeatureRecommendations) {
		metrics.RecommendRequests.WithLabelValues("denied").Inc()
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotAvailable, req.TenantID)
	}

	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}

	if cached, ok := e.fromCache(req, count); ok {
		e.cacheHits.Add(1)
		metrics.RecommendCacheHits.Inc()
		return cached, nil
	}
	e.cacheMisses.Add(1)
	metrics.RecommendCacheMisses.Inc()

	recs, outcome, err := e.compute(ctx, req, count)
	if err != nil {
		e.errorCount.Add(1)
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	e.store(req, count, recs)
	metrics.RecommendRequests.WithLabelValues(outcome).Inc()
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug().
		Str("tenant_id", req.TenantID).
		Str("user_id", req.UserID).
		Str("outcome", outcome).
		Int("count", len(recs)).
		Dur("elapsed", time.Since(start)).
		Msg("recommendations produced")
	return recs, nil
}

// compute runs the full pipeline and reports the request outcome label.
func (e *Engine) compute(ctx context.Context, req Request, count int) ([]Recommendation, string, error) {
	coldStart, err := e.isColdStart(ctx, req)
	if err != nil {
		return nil, "", err
	}

	if coldStart {
		recs, err := e.trendingOnly(ctx, req, count)
		if err != nil {
			return nil, "", err
		}
		return recs, "cold_start", nil
	}

	byStrategy := e.fanOut(ctx, req)
	recs := Combine(byStrategy, e.weights)

	recs, err = e.applyFilters(ctx, recs, req.Filters)
	if err != nil {
		return nil, "", err
	}

	recs = Diversify(recs, e.categoryLookup(ctx))
	if len(recs) > count {
		recs = recs[:count]
	}
	return recs, "ok", nil
}

// isColdStart reports whether the user is entirely unknown. Only a missing
// profile short-circuits to trending; a profile with explicit preferences and
// no views still personalizes through the content-based strategy.
func (e *Engine) isColdStart(ctx context.Context, req Request) (bool, error) {
	_, err := e.profiles.Get(ctx, req.TenantID, req.UserID)
	if errors.Is(err, profile.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load profile: %w", err)
	}
	return false, nil
}

// trendingOnly serves cold-start users: trending results with filters and
// truncation applied but no hybrid combination or diversification.
func (e *Engine) trendingOnly(ctx context.Context, req Request, count int) ([]Recommendation, error) {
	recs, err := e.strategyByName(StrategyTrending).Recommend(ctx, req.TenantID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("trending fallback: %w", err)
	}

	recs, err = e.applyFilters(ctx, recs, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(recs) > count {
		recs = recs[:count]
	}
	return recs, nil
}

// fanOut runs every strategy concurrently. A failing strategy is logged and
// excluded; the request proceeds with whatever succeeded.
func (e *Engine) fanOut(ctx context.Context, req Request) map[string][]Recommendation {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		byStrategy = make(map[string][]Recommendation, len(e.strategies))
	)

	for _, s := range e.strategies {
		wg.Add(1)
		go func(s Strategy) {
			defer wg.Done()

			recs, err := s.Recommend(ctx, req.TenantID, req.UserID)
			if err != nil {
				metrics.StrategyFailures.WithLabelValues(s.Name()).Inc()
				e.logger.Warn().Err(err).
					Str("strategy", s.Name()).
					Str("user_id", req.UserID).
					Msg("strategy failed, continuing without it")
				return
			}

			mu.Lock()
			byStrategy[s.Name()] = recs
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	return byStrategy
}

// applyFilters drops recommendations that fail the request filters. A
// recommendation whose content id is unknown to the catalog is always
// dropped; individual lookup failures skip the item rather than abort.
func (e *Engine) applyFilters(ctx context.Context, recs []Recommendation, f Filters) ([]Recommendation, error) {
	out := make([]Recommendation, 0, len(recs))
	for _, rec := range recs {
		features, err := e.catalog.Get(ctx, rec.ContentID)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("content_id", rec.ContentID).Msg("content lookup failed, skipping")
			continue
		}

		if len(f.Categories) > 0 && !Intersects(f.Categories, features.Categories) {
			continue
		}
		if len(f.ContentTypes) > 0 && !containsType(f.ContentTypes, features.Type) {
			continue
		}
		if f.MinConfidence > 0 && rec.Confidence < f.MinConfidence {
			continue
		}
		if f.MaxAgeDays > 0 && features.RecencyDays > f.MaxAgeDays {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// categoryLookup returns the category resolver used by the diversity pass.
// Lookup failures mean no category, never an aborted request.
func (e *Engine) categoryLookup(ctx context.Context) func(string) []string {
	return func(contentID string) []string {
		f, err := e.catalog.Get(ctx, contentID)
		if err != nil {
			return nil
		}
		return f.Categories
	}
}

func (e *Engine) strategyByName(name string) Strategy {
	for _, s := range e.strategies {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func containsType(types []string, t content.Type) bool {
	for _, v := range types {
		if v == string(t) {
			return true
		}
	}
	return false
}

// cacheKey is stable for a given (tenant, user, count, filters) tuple.
func cacheKey(req Request, count int) string {
	var b strings.Builder
	b.WriteString(req.TenantID)
	b.WriteByte('|')
	b.WriteString(req.UserID)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d|%g|%g|", count, req.Filters.MinConfidence, req.Filters.MaxAgeDays)

	cats := append([]string(nil), req.Filters.Categories...)
	sort.Strings(cats)
	b.WriteString(strings.Join(cats, ","))
	b.WriteByte('|')

	types := append([]string(nil), req.Filters.ContentTypes...)
	sort.Strings(types)
	b.WriteString(strings.Join(types, ","))
	return b.String()
}

func (e *Engine) fromCache(req Request, count int) ([]Recommendation, bool) {
	if e.cacheTTL <= 0 {
		return nil, false
	}

	e.cacheMu.RLock()
	entry, ok := e.cache[cacheKey(req, count)]
	e.cacheMu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}

	out := make([]Recommendation, len(entry.recs))
	copy(out, entry.recs)
	return out, true
}

func (e *Engine) store(req Request, count int, recs []Recommendation) {
	if e.cacheTTL <= 0 {
		return
	}

	cp := make([]Recommendation, len(recs))
	copy(cp, recs)

	e.cacheMu.Lock()
	e.cache[cacheKey(req, count)] = cacheEntry{recs: cp, expiresAt: time.Now().Add(e.cacheTTL)}
	e.cacheMu.Unlock()
}

// InvalidateCache clears the response cache. Call it after registering new
// content features so fresh items become visible immediately.
func (e *Engine) InvalidateCache() {
	e.cacheMu.Lock()
	e.cache = make(map[string]cacheEntry)
	e.cacheMu.Unlock()
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Errors      int64 `json:"errors"`
}

// Snapshot returns current engine counters.
func (e *Engine) Snapshot() Stats {
	return Stats{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		Errors:      e.errorCount.Load(),
	}
}
