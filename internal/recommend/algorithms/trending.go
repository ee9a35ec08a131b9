// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package algorithms

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/recommend"
)

const (
	// minTrendingScore is the inclusion threshold for trending content.
	minTrendingScore = 0.5

	// maxTrendingResults bounds the trending candidate list.
	maxTrendingResults = 20
)

// Trending surfaces content with high externally computed trending scores.
// It is user independent and therefore also serves cold-start requests.
type Trending struct {
	catalog content.Store
	logger  zerolog.Logger
}

// NewTrending creates the trending strategy.
func NewTrending(catalog content.Store, logger zerolog.Logger) *Trending {
	return &Trending{
		catalog: catalog,
		logger:  logger.With().Str("component", "recommend.trending").Logger(),
	}
}

// Name implements recommend.Strategy.
func (t *Trending) Name() string { return recommend.StrategyTrending }

// Recommend returns up to maxTrendingResults items with trending score above
// minTrendingScore, descending. Score is the trending score scaled by 0.8;
// confidence is the trending score itself.
func (t *Trending) Recommend(ctx context.Context, tenantID, userID string) ([]recommend.Recommendation, error) {
	items, err := t.catalog.Trending(ctx, minTrendingScore, maxTrendingResults)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]recommend.Recommendation, 0, len(items))
	for _, f := range items {
		out = append(out, recommend.Recommendation{
			ContentID:  f.ContentID,
			Score:      f.TrendingScore * 0.8,
			Confidence: f.TrendingScore,
			Reasons: []recommend.Reason{{
				Type:        recommend.ReasonTrending,
				Description: "trending in crypto now",
				Weight:      f.TrendingScore,
			}},
			Metadata: recommend.Metadata{
				Algorithm: t.Name(),
				Timestamp: now,
			},
		})
	}
	return out, nil
}

var _ recommend.Strategy = (*Trending)(nil)
