// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package algorithms implements the recommendation strategies combined by
// the hybrid engine: collaborative, content-based, behavioral and trending.
package algorithms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
)

// maxSimilarUsers bounds how many neighbors collaborative filtering
// considers per request.
const maxSimilarUsers = 50

// minEndorsementRating is the rating feedback threshold for treating a
// neighbor's content as endorsed.
const minEndorsementRating = 4

// SimilarUser is one neighbor with a similarity score in [0,1].
type SimilarUser struct {
	UserID string
	Score  float64
}

// UserSimilarity finds users similar to the given one within a tenant.
// Implementations back this with whatever user-user model is available.
type UserSimilarity interface {
	SimilarUsers(ctx context.Context, tenantID, userID string, limit int) ([]SimilarUser, error)
}

// NoopUserSimilarity returns no neighbors. It is the shipped default until a
// real user-user model is wired in; with it the collaborative strategy
// contributes nothing, which the hybrid combiner handles naturally.
type NoopUserSimilarity struct{}

// SimilarUsers implements UserSimilarity.
func (NoopUserSimilarity) SimilarUsers(context.Context, string, string, int) ([]SimilarUser, error) {
	return nil, nil
}

// Collaborative recommends content endorsed by similar users. Endorsement
// means a rating feedback of minEndorsementRating or higher.
type Collaborative struct {
	profiles   profile.Store
	similarity UserSimilarity
	logger     zerolog.Logger
}

// NewCollaborative creates the collaborative strategy.
func NewCollaborative(profiles profile.Store, similarity UserSimilarity, logger zerolog.Logger) *Collaborative {
	if similarity == nil {
		similarity = NoopUserSimilarity{}
	}
	return &Collaborative{
		profiles:   profiles,
		similarity: similarity,
		logger:     logger.With().Str("component", "recommend.collaborative").Logger(),
	}
}

// Name implements recommend.Strategy.
func (c *Collaborative) Name() string { return recommend.StrategyCollaborative }

// Recommend returns content endorsed by the user's neighbors, excluding
// anything the user has already viewed or interacted with. Score is the
// neighbor similarity scaled by 0.8; confidence is the similarity itself.
func (c *Collaborative) Recommend(ctx context.Context, tenantID, userID string) ([]recommend.Recommendation, error) {
	neighbors, err := c.similarity.SimilarUsers(ctx, tenantID, userID, maxSimilarUsers)
	if err != nil {
		return nil, fmt.Errorf("similar users for %s: %w", userID, err)
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	seen := map[string]struct{}{}
	if p, err := c.profiles.Get(ctx, tenantID, userID); err == nil {
		seen = p.SeenContentIDs()
	} else if !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	best := make(map[string]recommend.Recommendation)
	for _, n := range neighbors {
		np, err := c.profiles.Get(ctx, tenantID, n.UserID)
		if errors.Is(err, profile.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("neighbor profile %s: %w", n.UserID, err)
		}

		for _, fb := range np.Behavior.Feedback {
			if fb.Type != profile.FeedbackRating || fb.Value < minEndorsementRating {
				continue
			}
			if _, ok := seen[fb.ContentID]; ok {
				continue
			}
			prev, ok := best[fb.ContentID]
			if ok && prev.Score >= n.Score*0.8 {
				continue
			}
			best[fb.ContentID] = recommend.Recommendation{
				ContentID:  fb.ContentID,
				Score:      n.Score * 0.8,
				Confidence: n.Score,
				Reasons: []recommend.Reason{{
					Type:        recommend.ReasonSocial,
					Description: "rated highly by similar users",
					Weight:      n.Score,
				}},
				Metadata: recommend.Metadata{
					Algorithm: c.Name(),
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

var _ recommend.Strategy = (*Collaborative)(nil)
