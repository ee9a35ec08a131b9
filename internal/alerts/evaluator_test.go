// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/coinscope/coinscope/internal/market"
)

func btcTick(price float64, at time.Time) market.Tick {
	return market.Tick{Symbol: "BTC", Price: price, Timestamp: at}
}

func TestEvaluatorAboveBelow(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(market.NewMemoryPriceCache(0))
	now := time.Now()

	above := validAlert() // above 50000
	cases := []struct {
		price float64
		want  bool
	}{
		{49999, false},
		{50000, true}, // boundary fires
		{51000, true},
	}
	for _, tc := range cases {
		got, err := e.ShouldTrigger(ctx, above, btcTick(tc.price, now))
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("above@%v = %v, want %v", tc.price, got, tc.want)
		}
	}

	below := validAlert()
	below.Condition = ConditionBelow
	below.TargetPrice = 45000
	for _, tc := range []struct {
		price float64
		want  bool
	}{
		{45001, false},
		{45000, true},
		{44000, true},
	} {
		got, err := e.ShouldTrigger(ctx, below, btcTick(tc.price, now))
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("below@%v = %v, want %v", tc.price, got, tc.want)
		}
	}
}

func TestEvaluatorSkipsTriggeredAndInactive(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(market.NewMemoryPriceCache(0))
	now := time.Now()

	triggered := validAlert()
	triggered.IsTriggered = true
	if got, _ := e.ShouldTrigger(ctx, triggered, btcTick(99999, now)); got {
		t.Error("triggered alert re-evaluated to true")
	}

	inactive := validAlert()
	inactive.IsActive = false
	if got, _ := e.ShouldTrigger(ctx, inactive, btcTick(99999, now)); got {
		t.Error("inactive alert fired")
	}
}

func TestEvaluatorIgnoresOtherSymbols(t *testing.T) {
	e := NewEvaluator(market.NewMemoryPriceCache(0))
	a := validAlert()
	got, err := e.ShouldTrigger(context.Background(), a,
		market.Tick{Symbol: "ETH", Price: 99999, Timestamp: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("BTC alert fired on ETH tick")
	}
}

func TestEvaluatorChangePercent(t *testing.T) {
	ctx := context.Background()
	cache := market.NewMemoryPriceCache(0)
	e := NewEvaluator(cache)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Baseline one hour before the evaluation tick.
	if err := cache.Put(ctx, btcTick(50000, base)); err != nil {
		t.Fatal(err)
	}

	a := validAlert()
	a.Condition = ConditionChangePercent
	a.ChangePercent = 5
	a.Timeframe = Timeframe1h
	a.TargetPrice = 0

	// +4% over the hour: below threshold.
	got, err := e.ShouldTrigger(ctx, a, btcTick(52000, base.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("4% move fired a 5% alert")
	}

	// +5% exactly: fires.
	got, err = e.ShouldTrigger(ctx, a, btcTick(52500, base.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("5% move did not fire")
	}

	// -6%: absolute movement fires regardless of direction.
	got, err = e.ShouldTrigger(ctx, a, btcTick(47000, base.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("-6% move did not fire")
	}

	// Negative configured percent behaves like its absolute value.
	neg := *a
	neg.ChangePercent = -5
	got, err = e.ShouldTrigger(ctx, &neg, btcTick(52500, base.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("negative threshold did not fire on +5% move")
	}
}

func TestEvaluatorChangePercentWithoutHistory(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(market.NewMemoryPriceCache(0))

	a := validAlert()
	a.Condition = ConditionChangePercent
	a.ChangePercent = 1
	a.Timeframe = Timeframe24h
	a.TargetPrice = 0

	// No cached tick 24h back: the alert must not fire on a guess.
	got, err := e.ShouldTrigger(ctx, a, btcTick(99999, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("change alert fired without baseline history")
	}
}

func TestDefaultMessage(t *testing.T) {
	a := validAlert()
	msg := DefaultMessage(a, 51000)
	if msg != "Bitcoin is above 50000.00 (now 51000.00)" {
		t.Errorf("message = %q", msg)
	}

	custom := validAlert()
	custom.Message = "to the moon"
	if got := DefaultMessage(custom, 51000); got != "to the moon" {
		t.Errorf("custom message ignored: %q", got)
	}
}
