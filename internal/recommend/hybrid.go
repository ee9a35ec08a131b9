// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package recommend

import (
	"sort"
	"time"
)

// diversityHead is how many same-category items the diversity pass accepts
// before deferring further ones.
const diversityHead = 3

// Combine merges per-strategy results into one hybrid list. Scores are
// summed as score × strategy weight per content id, confidence is the
// maximum across strategies, reasons are concatenated and the contributing
// strategies recorded as factors. The result is sorted by descending score
// with content id as tiebreak, so the output is invariant to the order the
// strategy results arrive in.
func Combine(byStrategy map[string][]Recommendation, weights Weights) []Recommendation {
	type acc struct {
		score      float64
		confidence float64
		reasons    []Reason
		factors    map[string]struct{}
	}

	merged := make(map[string]*acc)
	for name, recs := range byStrategy {
		weight, ok := weights[name]
		if !ok || weight == 0 {
			continue
		}
		for _, rec := range recs {
			if rec.ContentID == "" {
				continue
			}
			a := merged[rec.ContentID]
			if a == nil {
				a = &acc{factors: make(map[string]struct{})}
				merged[rec.ContentID] = a
			}
			a.score += rec.Score * weight
			if rec.Confidence > a.confidence {
				a.confidence = rec.Confidence
			}
			a.reasons = append(a.reasons, rec.Reasons...)
			a.factors[name] = struct{}{}
		}
	}

	now := time.Now()
	out := make([]Recommendation, 0, len(merged))
	for id, a := range merged {
		factors := make([]string, 0, len(a.factors))
		for f := range a.factors {
			factors = append(factors, f)
		}
		sort.Strings(factors)

		out = append(out, Recommendation{
			ContentID:  id,
			Score:      a.score,
			Confidence: a.confidence,
			Reasons:    a.reasons,
			Metadata: Metadata{
				Algorithm: StrategyHybrid,
				Factors:   factors,
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
	return out
}

// Diversify reorders a scored list so the head is not dominated by one
// category. Walking in score order, an item is kept in place when it
// introduces a category not seen yet or when fewer than diversityHead items
// have been kept; deferred items are appended afterward in their original
// order. The result always has the same length as the input.
//
// categoriesOf resolves a content id to its categories; nil or empty means
// the item carries no category and is always kept.
func Diversify(recs []Recommendation, categoriesOf func(contentID string) []string) []Recommendation {
	if len(recs) <= diversityHead || categoriesOf == nil {
		return recs
	}

	seen := make(map[string]struct{})
	kept := make([]Recommendation, 0, len(recs))
	var deferred []Recommendation

	for _, rec := range recs {
		cats := categoriesOf(rec.ContentID)
		if len(cats) == 0 || len(kept) < diversityHead || hasNewCategory(cats, seen) {
			kept = append(kept, rec)
			for _, c := range cats {
				seen[c] = struct{}{}
			}
			continue
		}
		deferred = append(deferred, rec)
	}

	return append(kept, deferred...)
}

func hasNewCategory(cats []string, seen map[string]struct{}) bool {
	for _, c := range cats {
		if _, ok := seen[c]; !ok {
			return true
		}
	}
	return false
}
