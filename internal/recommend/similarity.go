// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package recommend

// Dimension weights for feature-set similarity.
const (
	categoryWeight = 0.4
	tagWeight      = 0.3
	topicWeight    = 0.3
)

// FeatureSet is the comparable slice of a content item or a pseudo-profile.
type FeatureSet struct {
	Categories []string
	Tags       []string
	Topics     []string
}

// Similarity scores two feature sets in [0,1]. Each dimension contributes
// overlap ratio times its weight, where the ratio is the intersection size
// over the larger set. A dimension empty on both sides contributes no term.
// When no dimension is comparable the score is 0. The weighted sum is NOT
// renormalized over the participating dimensions, so identical non-empty
// sets score exactly 1.0 only when all three dimensions are present.
func Similarity(a, b FeatureSet) float64 {
	var score, factors float64

	if r, ok := overlapRatio(a.Categories, b.Categories); ok {
		score += r * categoryWeight
		factors++
	}
	if r, ok := overlapRatio(a.Tags, b.Tags); ok {
		score += r * tagWeight
		factors++
	}
	if r, ok := overlapRatio(a.Topics, b.Topics); ok {
		score += r * topicWeight
		factors++
	}

	if factors == 0 {
		return 0
	}
	return score
}

// overlapRatio returns |a ∩ b| / max(|a|,|b|). The second return is false
// when both sets are empty and the dimension is not comparable.
func overlapRatio(a, b []string) (float64, bool) {
	if len(a) == 0 && len(b) == 0 {
		return 0, false
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, true
	}

	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	var inter int
	for _, s := range b {
		if _, ok := set[s]; ok {
			inter++
			delete(set, s)
		}
	}

	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return float64(inter) / float64(max), true
}

// Intersection returns the values present in both slices, ordered as they
// appear in b.
func Intersection(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range b {
		if _, ok := set[s]; ok {
			out = append(out, s)
			delete(set, s)
		}
	}
	return out
}

// Intersects reports whether the two slices share at least one value.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
