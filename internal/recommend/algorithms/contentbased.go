// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package algorithms

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
)

// minContentSimilarity is the keep threshold for content-based matches.
const minContentSimilarity = 0.3

// ContentBased matches catalog items against a pseudo feature set built from
// the user's explicit preferences unioned with the features of everything
// they have viewed.
type ContentBased struct {
	profiles profile.Store
	catalog  content.Store
	logger   zerolog.Logger
}

// NewContentBased creates the content-based strategy.
func NewContentBased(profiles profile.Store, catalog content.Store, logger zerolog.Logger) *ContentBased {
	return &ContentBased{
		profiles: profiles,
		catalog:  catalog,
		logger:   logger.With().Str("component", "recommend.content").Logger(),
	}
}

// Name implements recommend.Strategy.
func (c *ContentBased) Name() string { return recommend.StrategyContentBased }

// Recommend scores every unseen catalog item against the user's pseudo
// features and keeps matches above minContentSimilarity. Score is the
// similarity; confidence is similarity × 0.9.
func (c *ContentBased) Recommend(ctx context.Context, tenantID, userID string) ([]recommend.Recommendation, error) {
	p, err := c.profiles.Get(ctx, tenantID, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pseudo, err := c.pseudoFeatures(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(pseudo.Categories) == 0 && len(pseudo.Tags) == 0 && len(pseudo.Topics) == 0 {
		return nil, nil
	}

	catalog, err := c.catalog.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := p.SeenContentIDs()
	now := time.Now()
	var out []recommend.Recommendation
	for _, f := range catalog {
		if _, ok := seen[f.ContentID]; ok {
			continue
		}
		item := recommend.FeatureSet{Categories: f.Categories, Tags: f.Tags, Topics: f.Topics}
		sim := recommend.Similarity(pseudo, item)
		if sim <= minContentSimilarity {
			continue
		}

		var reasons []recommend.Reason
		if shared := recommend.Intersection(pseudo.Categories, f.Categories); len(shared) > 0 {
			reasons = append(reasons, recommend.Reason{
				Type:        recommend.ReasonPreference,
				Description: "matches your preferred categories: " + strings.Join(shared, ", "),
				Weight:      sim,
			})
		}
		if shared := recommend.Intersection(pseudo.Tags, f.Tags); len(shared) > 0 {
			reasons = append(reasons, recommend.Reason{
				Type:        recommend.ReasonPreference,
				Description: "matches tags you follow: " + strings.Join(shared, ", "),
				Weight:      sim,
			})
		}

		out = append(out, recommend.Recommendation{
			ContentID:  f.ContentID,
			Score:      sim,
			Confidence: sim * 0.9,
			Reasons:    reasons,
			Metadata: recommend.Metadata{
				Algorithm: c.Name(),
				Timestamp: now,
			},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out, nil
}

// pseudoFeatures unions the user's explicit preferences with the categories,
// tags and topics of their viewed content. Views of unknown content are
// skipped.
func (c *ContentBased) pseudoFeatures(ctx context.Context, p *profile.Profile) (recommend.FeatureSet, error) {
	cats := newStringSet(p.Preferences.Categories)
	tags := newStringSet(p.Preferences.Tags)
	topics := newStringSet(p.Preferences.Topics)

	for _, v := range p.Behavior.ViewHistory {
		f, err := c.catalog.Get(ctx, v.ContentID)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}
		if err != nil {
			return recommend.FeatureSet{}, err
		}
		cats.add(f.Categories)
		tags.add(f.Tags)
		topics.add(f.Topics)
	}

	return recommend.FeatureSet{
		Categories: cats.values(),
		Tags:       tags.values(),
		Topics:     topics.values(),
	}, nil
}

// stringSet preserves insertion order for deterministic feature sets.
type stringSet struct {
	seen map[string]struct{}
	list []string
}

func newStringSet(init []string) *stringSet {
	s := &stringSet{seen: make(map[string]struct{}, len(init))}
	s.add(init)
	return s
}

func (s *stringSet) add(values []string) {
	for _, v := range values {
		if _, ok := s.seen[v]; !ok {
			s.seen[v] = struct{}{}
			s.list = append(s.list, v)
		}
	}
}

func (s *stringSet) values() []string { return s.list }

var _ recommend.Strategy = (*ContentBased)(nil)
