// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package recommend produces personalized content recommendations. Four
// strategies score candidates independently; a hybrid combiner merges them
// with static weights and a diversity pass reorders the head of the list.
package recommend

import (
	"context"
	"errors"
	"time"
)

// ErrFeatureNotAvailable is returned when the tenant's plan does not include
// recommendations. The check runs before any computation.
var ErrFeatureNotAvailable = errors.New("feature not available for tenant")

// ReasonType classifies why a content item was recommended.
type ReasonType string

// Reason types.
const (
	ReasonSocial     ReasonType = "social"
	ReasonPreference ReasonType = "preference"
	ReasonBehavior   ReasonType = "behavior"
	ReasonTrending   ReasonType = "trending"
)

// Reason explains one contribution to a recommendation.
type Reason struct {
	Type        ReasonType `json:"type"`
	Description string     `json:"description"`
	Weight      float64    `json:"weight"`
}

// Metadata records how a recommendation was produced.
type Metadata struct {
	// Algorithm is the producing strategy, or "hybrid" after combination.
	Algorithm string `json:"algorithm"`

	// Factors lists the strategies that contributed after combination.
	Factors []string `json:"factors,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Recommendation is one scored content item.
type Recommendation struct {
	ContentID  string   `json:"content_id"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Reasons    []Reason `json:"reasons,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// Filters restricts the candidate set of a request. Zero values mean the
// dimension is unconstrained.
type Filters struct {
	Categories    []string `json:"categories,omitempty"`
	ContentTypes  []string `json:"content_types,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
	MaxAgeDays    float64  `json:"max_age_days,omitempty"`
}

// Empty reports whether no filter dimension is set.
func (f Filters) Empty() bool {
	return len(f.Categories) == 0 && len(f.ContentTypes) == 0 &&
		f.MinConfidence == 0 && f.MaxAgeDays == 0
}

// Request asks for recommendations for one user.
type Request struct {
	UserID   string  `json:"user_id"`
	TenantID string  `json:"tenant_id"`
	Count    int     `json:"count"`
	Filters  Filters `json:"filters"`
}

// DefaultCount applies when a request does not specify one.
const DefaultCount = 10

// Strategy is one recommendation algorithm. An empty result is a valid
// answer. Implementations must not mutate the profile and must be safe for
// concurrent use.
type Strategy interface {
	// Name identifies the strategy in weights, metadata and metrics.
	Name() string

	// Recommend returns scored candidates for the user.
	Recommend(ctx context.Context, tenantID, userID string) ([]Recommendation, error)
}

// Strategy names. The hybrid name marks combined output.
const (
	StrategyCollaborative = "collaborative"
	StrategyContentBased  = "contentBased"
	StrategyBehavioral    = "behavioral"
	StrategyTrending      = "trending"
	StrategyHybrid        = "hybrid"
)

// Weights maps strategy name to its share of the hybrid score. Weights are
// static configuration and are not renormalized at runtime.
type Weights map[string]float64

// DefaultWeights returns the shipped strategy weights.
func DefaultWeights() Weights {
	return Weights{
		StrategyCollaborative: 0.3,
		StrategyContentBased:  0.4,
		StrategyBehavioral:    0.2,
		StrategyTrending:      0.1,
	}
}
