// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package recommend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/entitlement"
	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/storage/kv"
)

// stubStrategy returns canned results and counts invocations.
type stubStrategy struct {
	name  string
	recs  []Recommendation
	err   error
	calls atomic.Int64
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Recommend(context.Context, string, string) ([]Recommendation, error) {
	s.calls.Add(1)
	return s.recs, s.err
}

type testEnv struct {
	engine   *Engine
	profiles profile.Store
	catalog  content.Store
	trending *stubStrategy
	contentB *stubStrategy
}

func newTestEnv(t *testing.T, opts ...EngineOption) *testEnv {
	t.Helper()

	catalog := content.NewMemoryStore()
	for _, f := range []*content.Features{
		{ContentID: "c1", Title: "DeFi yields", Type: content.TypeArticle, Categories: []string{"defi"}, RecencyDays: 1},
		{ContentID: "c2", Title: "BTC outlook", Type: content.TypeAnalysis, Categories: []string{"bitcoin"}, RecencyDays: 2},
		{ContentID: "c3", Title: "NFT market", Type: content.TypeNews, Categories: []string{"nft"}, RecencyDays: 40},
		{ContentID: "t1", Title: "Hot story", Type: content.TypeNews, Categories: []string{"bitcoin"}, TrendingScore: 0.9, RecencyDays: 1},
	} {
		if err := catalog.Register(context.Background(), f); err != nil {
			t.Fatal(err)
		}
	}

	trending := &stubStrategy{
		name: StrategyTrending,
		recs: []Recommendation{{
			ContentID: "t1", Score: 0.72, Confidence: 0.9,
			Metadata: Metadata{Algorithm: StrategyTrending, Timestamp: time.Now()},
		}},
	}
	contentB := &stubStrategy{
		name: StrategyContentBased,
		recs: []Recommendation{
			{ContentID: "c1", Score: 0.8, Confidence: 0.7},
			{ContentID: "c2", Score: 0.6, Confidence: 0.5},
			{ContentID: "c3", Score: 0.4, Confidence: 0.3},
		},
	}

	profiles := profile.NewKVStore(kv.NewMemory())
	engine, err := NewEngine(
		[]Strategy{trending, contentB},
		profiles, catalog, entitlement.AllowAll(), zerolog.Nop(), opts...,
	)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{engine: engine, profiles: profiles, catalog: catalog, trending: trending, contentB: contentB}
}

// warmUp gives the user one view so requests are not cold starts.
func (env *testEnv) warmUp(t *testing.T, tenantID, userID string) {
	t.Helper()
	_, err := env.profiles.Update(context.Background(), tenantID, userID, func(p *profile.Profile) error {
		p.Behavior.ViewHistory = append(p.Behavior.ViewHistory, profile.ViewEvent{
			ContentID: "c9", Timestamp: time.Now(),
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEngineRequiresTrendingStrategy(t *testing.T) {
	_, err := NewEngine(
		[]Strategy{&stubStrategy{name: StrategyContentBased}},
		profile.NewKVStore(kv.NewMemory()), content.NewMemoryStore(),
		entitlement.AllowAll(), zerolog.Nop(),
	)
	if err == nil {
		t.Fatal("expected error without trending strategy")
	}
}

func TestEngineEntitlementGate(t *testing.T) {
	env := newTestEnv(t)
	env.engine.entitlements = entitlement.NewStaticChecker(nil, nil)

	_, err := env.engine.Recommend(context.Background(), Request{UserID: "u1", TenantID: "t1"})
	if !errors.Is(err, ErrFeatureNotAvailable) {
		t.Fatalf("err = %v, want ErrFeatureNotAvailable", err)
	}
	// The gate runs before any strategy.
	if env.trending.calls.Load() != 0 || env.contentB.calls.Load() != 0 {
		t.Error("strategies ran for a denied tenant")
	}
}

func TestEngineColdStartServesTrendingOnly(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.engine.Recommend(context.Background(), Request{UserID: "new", TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ContentID != "t1" {
		t.Fatalf("cold start = %+v, want single trending item", got)
	}
	if got[0].Metadata.Algorithm != StrategyTrending {
		t.Errorf("algorithm = %s, want trending (no hybrid pass)", got[0].Metadata.Algorithm)
	}
	if env.contentB.calls.Load() != 0 {
		t.Error("personalized strategy ran for cold-start user")
	}
}

func TestEnginePreferencesOnlyUserGetsFullPipeline(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.profiles.Update(context.Background(), "t1", "u1", func(p *profile.Profile) error {
		p.Preferences.Categories = []string{"defi"}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.engine.Recommend(context.Background(), Request{UserID: "u1", TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if env.contentB.calls.Load() == 0 {
		t.Error("content-based strategy skipped for a user with explicit preferences")
	}
	if len(got) == 0 || got[0].Metadata.Algorithm != StrategyHybrid {
		t.Errorf("got %+v, want hybrid results", got)
	}
}

func TestEngineCombinesAndTruncates(t *testing.T) {
	env := newTestEnv(t)
	env.warmUp(t, "t1", "u1")

	got, err := env.engine.Recommend(context.Background(), Request{UserID: "u1", TenantID: "t1", Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0].ContentID != "c1" {
		t.Errorf("top item = %s, want c1", got[0].ContentID)
	}
	if got[0].Metadata.Algorithm != StrategyHybrid {
		t.Errorf("algorithm = %s, want hybrid", got[0].Metadata.Algorithm)
	}
}

func TestEngineFilters(t *testing.T) {
	env := newTestEnv(t)
	env.warmUp(t, "t1", "u1")
	ctx := context.Background()

	byCategory, err := env.engine.Recommend(ctx, Request{
		UserID: "u1", TenantID: "t1",
		Filters: Filters{Categories: []string{"defi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(byCategory) != 1 || byCategory[0].ContentID != "c1" {
		t.Errorf("category filter = %+v, want only c1", byCategory)
	}

	byAge, err := env.engine.Recommend(ctx, Request{
		UserID: "u1", TenantID: "t1",
		Filters: Filters{MaxAgeDays: 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range byAge {
		if r.ContentID == "c3" {
			t.Error("maxAgeDays filter kept 40-day-old content")
		}
	}

	byType, err := env.engine.Recommend(ctx, Request{
		UserID: "u1", TenantID: "t1",
		Filters: Filters{ContentTypes: []string{"analysis"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 || byType[0].ContentID != "c2" {
		t.Errorf("type filter = %+v, want only c2", byType)
	}
}

func TestEngineDropsUnknownContent(t *testing.T) {
	env := newTestEnv(t)
	env.warmUp(t, "t1", "u1")
	env.contentB.recs = append(env.contentB.recs, Recommendation{ContentID: "ghost", Score: 0.99, Confidence: 0.9})

	got, err := env.engine.Recommend(context.Background(), Request{UserID: "u1", TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range got {
		if r.ContentID == "ghost" {
			t.Error("recommendation for unregistered content survived")
		}
	}
}

func TestEngineStrategyFailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.warmUp(t, "t1", "u1")
	env.contentB.err = errors.New("backend down")

	got, err := env.engine.Recommend(context.Background(), Request{UserID: "u1", TenantID: "t1"})
	if err != nil {
		t.Fatalf("request failed with one broken strategy: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no results despite healthy trending strategy")
	}
}

func TestEngineCache(t *testing.T) {
	env := newTestEnv(t)
	env.warmUp(t, "t1", "u1")
	ctx := context.Background()
	req := Request{UserID: "u1", TenantID: "t1"}

	if _, err := env.engine.Recommend(ctx, req); err != nil {
		t.Fatal(err)
	}
	first := env.contentB.calls.Load()

	if _, err := env.engine.Recommend(ctx, req); err != nil {
		t.Fatal(err)
	}
	if env.contentB.calls.Load() != first {
		t.Error("second identical request recomputed instead of hitting cache")
	}

	env.engine.InvalidateCache()
	if _, err := env.engine.Recommend(ctx, req); err != nil {
		t.Fatal(err)
	}
	if env.contentB.calls.Load() == first {
		t.Error("request after invalidation did not recompute")
	}

	stats := env.engine.Snapshot()
	if stats.Requests != 3 || stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEngineRejectsMissingIDs(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.engine.Recommend(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty user and tenant")
	}
}
