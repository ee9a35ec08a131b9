// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package algorithms

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
)

const (
	// behavioralSeedViews is how many recent views seed related-content
	// expansion.
	behavioralSeedViews = 50

	// minRelatedSimilarity is the threshold for a related candidate.
	minRelatedSimilarity = 0.2

	// relatedPerSeed bounds how many candidates each seed view contributes.
	relatedPerSeed = 5

	// incompleteViewPenalty scales scores seeded by views the user did not
	// finish.
	incompleteViewPenalty = 0.7
)

// Behavioral recommends content related to what the user recently viewed.
// Each recent view seeds a related-content lookup; finishing the seed view
// weighs its suggestions higher than abandoning it.
type Behavioral struct {
	profiles profile.Store
	catalog  content.Store
	logger   zerolog.Logger
}

// NewBehavioral creates the behavioral strategy.
func NewBehavioral(profiles profile.Store, catalog content.Store, logger zerolog.Logger) *Behavioral {
	return &Behavioral{
		profiles: profiles,
		catalog:  catalog,
		logger:   logger.With().Str("component", "recommend.behavioral").Logger(),
	}
}

// Name implements recommend.Strategy.
func (b *Behavioral) Name() string { return recommend.StrategyBehavioral }

// Recommend expands the user's recent views into related content. For each
// of the last behavioralSeedViews views, the top relatedPerSeed catalog items
// with similarity above minRelatedSimilarity are suggested, scored as
// similarity times 1.0 for completed seed views or incompleteViewPenalty
// otherwise. A candidate reachable from several seeds keeps its best score.
func (b *Behavioral) Recommend(ctx context.Context, tenantID, userID string) ([]recommend.Recommendation, error) {
	p, err := b.profiles.Get(ctx, tenantID, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seeds := p.RecentViews(behavioralSeedViews)
	if len(seeds) == 0 {
		return nil, nil
	}

	catalog, err := b.catalog.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := p.SeenContentIDs()
	now := time.Now()
	best := make(map[string]recommend.Recommendation)

	for _, seed := range seeds {
		seedFeatures, err := b.catalog.Get(ctx, seed.ContentID)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		multiplier := incompleteViewPenalty
		if seed.Completed {
			multiplier = 1.0
		}

		for _, rel := range relatedTo(seedFeatures, catalog, seen) {
			score := rel.similarity * multiplier
			if prev, ok := best[rel.features.ContentID]; ok && prev.Score >= score {
				continue
			}
			best[rel.features.ContentID] = recommend.Recommendation{
				ContentID:  rel.features.ContentID,
				Score:      score,
				Confidence: rel.similarity,
				Reasons: []recommend.Reason{{
					Type:        recommend.ReasonBehavior,
					Description: "related to " + seedFeatures.Title,
					Weight:      rel.similarity,
				}},
				Metadata: recommend.Metadata{
					Algorithm: b.Name(),
					Timestamp: now,
				},
			}
		}
	}

	out := make([]recommend.Recommendation, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out, nil
}

// related is one candidate with its similarity to the seed.
type related struct {
	features   *content.Features
	similarity float64
}

// relatedTo returns up to relatedPerSeed catalog items most similar to seed,
// excluding the seed itself and anything in seen.
func relatedTo(seed *content.Features, catalog []*content.Features, seen map[string]struct{}) []related {
	seedSet := recommend.FeatureSet{Categories: seed.Categories, Tags: seed.Tags, Topics: seed.Topics}

	var out []related
	for _, f := range catalog {
		if f.ContentID == seed.ContentID {
			continue
		}
		if _, ok := seen[f.ContentID]; ok {
			continue
		}
		sim := recommend.Similarity(seedSet, recommend.FeatureSet{
			Categories: f.Categories, Tags: f.Tags, Topics: f.Topics,
		})
		if sim > minRelatedSimilarity {
			out = append(out, related{features: f, similarity: sim})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].similarity != out[j].similarity {
			return out[i].similarity > out[j].similarity
		}
		return out[i].features.ContentID < out[j].features.ContentID
	})
	if len(out) > relatedPerSeed {
		out = out[:relatedPerSeed]
	}
	return out
}

var _ recommend.Strategy = (*Behavioral)(nil)
