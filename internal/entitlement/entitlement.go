// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package entitlement answers whether a tenant's plan includes a feature.
// Plan management itself lives outside this service; deployments either
// allow everything or pin the feature set per tenant in configuration.
package entitlement

// Feature names checked by the service.
const (
	FeatureRecommendations = "aiRecommendations"
	FeaturePriceAlerts     = "priceAlerts"
)

// Checker reports whether a tenant has access to a feature.
type Checker interface {
	HasFeature(tenantID, feature string) bool
}

// StaticChecker is a Checker backed by a fixed tenant-to-features table.
// Tenants absent from the table fall back to the default feature set.
type StaticChecker struct {
	defaults map[string]bool
	tenants  map[string]map[string]bool
}

// NewStaticChecker builds a checker from per-tenant feature lists. The
// defaultFeatures apply to tenants without an explicit entry.
func NewStaticChecker(defaultFeatures []string, perTenant map[string][]string) *StaticChecker {
	c := &StaticChecker{
		defaults: toSet(defaultFeatures),
		tenants:  make(map[string]map[string]bool, len(perTenant)),
	}
	for tenant, features := range perTenant {
		c.tenants[tenant] = toSet(features)
	}
	return c
}

// AllowAll grants every feature to every tenant.
func AllowAll() *StaticChecker {
	return &StaticChecker{
		defaults: map[string]bool{FeatureRecommendations: true, FeaturePriceAlerts: true},
	}
}

// HasFeature implements Checker.
func (c *StaticChecker) HasFeature(tenantID, feature string) bool {
	if features, ok := c.tenants[tenantID]; ok {
		return features[feature]
	}
	return c.defaults[feature]
}

func toSet(features []string) map[string]bool {
	set := make(map[string]bool, len(features))
	for _, f := range features {
		set[f] = true
	}
	return set
}

var _ Checker = (*StaticChecker)(nil)
