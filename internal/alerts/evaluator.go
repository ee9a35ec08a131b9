// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"fmt"
	"math"

	"github.com/coinscope/coinscope/internal/market"
)

// Evaluator decides whether a tick satisfies an alert's condition. It is
// stateless; the one-shot guarantee lives in the store's MarkTriggered.
type Evaluator struct {
	cache market.PriceCache
}

// NewEvaluator creates an evaluator over the price cache. The cache is only
// consulted for change_percent baselines.
func NewEvaluator(cache market.PriceCache) *Evaluator {
	return &Evaluator{cache: cache}
}

// ShouldTrigger reports whether the alert fires on this tick. Triggered or
// inactive alerts never fire. For change_percent the baseline is the nearest
// cached tick at or before tick.Timestamp minus the timeframe; without
// history that old the alert does not fire rather than guessing.
func (e *Evaluator) ShouldTrigger(ctx context.Context, a *Alert, t market.Tick) (bool, error) {
	if a.IsTriggered || !a.IsActive {
		return false, nil
	}
	if market.NormalizeSymbol(a.Symbol) != market.NormalizeSymbol(t.Symbol) {
		return false, nil
	}

	switch a.Condition {
	case ConditionAbove:
		return t.Price >= a.TargetPrice, nil
	case ConditionBelow:
		return t.Price <= a.TargetPrice, nil
	case ConditionChangePercent:
		return e.changeExceeded(ctx, a, t)
	default:
		return false, fmt.Errorf("%w: unknown condition %q", ErrValidation, a.Condition)
	}
}

func (e *Evaluator) changeExceeded(ctx context.Context, a *Alert, t market.Tick) (bool, error) {
	window := a.Timeframe.Duration()
	if window == 0 {
		return false, fmt.Errorf("%w: missing change params", ErrValidation)
	}

	base, ok, err := e.cache.At(ctx, a.Symbol, t.Timestamp.Add(-window))
	if err != nil {
		return false, fmt.Errorf("baseline for %s: %w", a.Symbol, err)
	}
	if !ok || base.Price <= 0 {
		return false, nil
	}

	pct := (t.Price - base.Price) / base.Price * 100
	return math.Abs(pct) >= math.Abs(a.ChangePercent), nil
}

// DefaultMessage builds the notification text for a firing.
func DefaultMessage(a *Alert, price float64) string {
	if a.Message != "" {
		return a.Message
	}

	name := a.CoinName
	if name == "" {
		name = a.Symbol
	}

	switch a.Condition {
	case ConditionAbove:
		return fmt.Sprintf("%s is above %.2f (now %.2f)", name, a.TargetPrice, price)
	case ConditionBelow:
		return fmt.Sprintf("%s is below %.2f (now %.2f)", name, a.TargetPrice, price)
	case ConditionChangePercent:
		return fmt.Sprintf("%s moved more than %.2f%% over %s (now %.2f)",
			name, math.Abs(a.ChangePercent), a.Timeframe, price)
	}
	return fmt.Sprintf("%s price alert (now %.2f)", name, price)
}
