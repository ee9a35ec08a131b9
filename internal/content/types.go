// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package content holds per-content feature vectors consumed by the
// recommendation engine. Records are produced by the external ingestion
// pipeline; this package only stores and serves the latest snapshot.
package content

import "time"

// Type classifies a content item.
type Type string

// Content types.
const (
	TypeArticle  Type = "article"
	TypeAnalysis Type = "analysis"
	TypeNews     Type = "news"
	TypeTutorial Type = "tutorial"
)

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	switch t {
	case TypeArticle, TypeAnalysis, TypeNews, TypeTutorial:
		return true
	}
	return false
}

// Sentiment is the content's overall sentiment classification.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ReadingLevel is the targeted reader expertise.
type ReadingLevel string

// Reading levels.
const (
	LevelBeginner     ReadingLevel = "beginner"
	LevelIntermediate ReadingLevel = "intermediate"
	LevelAdvanced     ReadingLevel = "advanced"
)

// Features is the feature vector for one content item. ContentID is unique;
// RecencyDays and TrendingScore are refreshed by the ingestion pipeline.
type Features struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title"`
	Type      Type   `json:"type"`

	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Topics     []string `json:"topics"`

	Language     string       `json:"language"`
	ReadingLevel ReadingLevel `json:"reading_level"`

	// Length is the content length in words.
	Length int `json:"length"`

	// Complexity is a normalized difficulty score in [0,1].
	Complexity float64 `json:"complexity"`

	// RecencyDays is the number of days since publication.
	RecencyDays float64 `json:"recency_days"`

	// Popularity is the engagement score (unbounded).
	Popularity float64 `json:"popularity"`

	Sentiment Sentiment `json:"sentiment"`

	// TrendingScore is an externally computed velocity metric in [0,1].
	TrendingScore float64 `json:"trending_score"`

	AuthorCredibility float64 `json:"author_credibility"`
	TechnicalDepth    float64 `json:"technical_depth"`
	MarketRelevance   float64 `json:"market_relevance"`

	// Embedding is an optional dense vector from the ingestion pipeline.
	Embedding []float64 `json:"embedding,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
