// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coinscope/coinscope/internal/storage/kv"
)

func validAlert() *Alert {
	return &Alert{
		UserID:              "u1",
		TenantID:            "t1",
		Symbol:              "BTC",
		CoinName:            "Bitcoin",
		Condition:           ConditionAbove,
		TargetPrice:         50000,
		IsActive:            true,
		NotificationMethods: []NotificationMethod{MethodEmail},
	}
}

func TestAlertValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Alert)
		wantMsg string
	}{
		{
			name:    "above without target price",
			mutate:  func(a *Alert) { a.TargetPrice = 0 },
			wantMsg: "missing target price",
		},
		{
			name: "below without target price",
			mutate: func(a *Alert) {
				a.Condition = ConditionBelow
				a.TargetPrice = 0
			},
			wantMsg: "missing target price",
		},
		{
			name: "change without percent",
			mutate: func(a *Alert) {
				a.Condition = ConditionChangePercent
				a.Timeframe = Timeframe1h
			},
			wantMsg: "missing change params",
		},
		{
			name: "change without timeframe",
			mutate: func(a *Alert) {
				a.Condition = ConditionChangePercent
				a.ChangePercent = 5
			},
			wantMsg: "missing change params",
		},
		{
			name:    "no notification method",
			mutate:  func(a *Alert) { a.NotificationMethods = nil },
			wantMsg: "missing notification method",
		},
		{
			name: "webhook without url",
			mutate: func(a *Alert) {
				a.NotificationMethods = []NotificationMethod{MethodWebhook}
			},
			wantMsg: "missing webhook url",
		},
		{
			name:    "unknown condition",
			mutate:  func(a *Alert) { a.Condition = "sideways" },
			wantMsg: "unknown condition",
		},
		{
			name:    "missing symbol",
			mutate:  func(a *Alert) { a.Symbol = "" },
			wantMsg: "missing symbol",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAlert()
			tc.mutate(a)

			err := a.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("err = %q, want substring %q", err, tc.wantMsg)
			}
		})
	}

	if err := validAlert().Validate(); err != nil {
		t.Errorf("valid alert rejected: %v", err)
	}

	change := validAlert()
	change.Condition = ConditionChangePercent
	change.ChangePercent = -5
	change.Timeframe = Timeframe24h
	if err := change.Validate(); err != nil {
		t.Errorf("negative change percent rejected: %v", err)
	}
}

func TestTimeframeDuration(t *testing.T) {
	for tf, want := range map[Timeframe]time.Duration{
		Timeframe1h:  time.Hour,
		Timeframe4h:  4 * time.Hour,
		Timeframe24h: 24 * time.Hour,
		"1w":         0,
	} {
		if got := tf.Duration(); got != want {
			t.Errorf("Duration(%s) = %v, want %v", tf, got, want)
		}
	}
}

func newStore() *KVStore { return NewKVStore(kv.NewMemory()) }

func mustCreate(t *testing.T, s Store, a *Alert) *Alert {
	t.Helper()
	if a.ID == "" {
		a.ID = "alert-" + a.Symbol + "-" + string(a.Condition)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if err := s.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	a := mustCreate(t, s, validAlert())

	got, err := s.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Symbol != "BTC" || got.TargetPrice != 50000 {
		t.Errorf("Get = %+v", got)
	}

	got.TargetPrice = 55000
	if err := s.Save(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := s.Get(ctx, a.ID)
	if again.TargetPrice != 55000 {
		t.Errorf("Save not persisted: %v", again.TargetPrice)
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveUnknownAlert(t *testing.T) {
	a := validAlert()
	a.ID = "ghost"
	if err := newStore().Save(context.Background(), a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save unknown = %v, want ErrNotFound", err)
	}
}

func TestStoreActiveBySymbol(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	active := validAlert()
	active.ID = "a-active"
	mustCreate(t, s, active)

	triggered := validAlert()
	triggered.ID = "a-triggered"
	triggered.IsTriggered = true
	mustCreate(t, s, triggered)

	inactive := validAlert()
	inactive.ID = "a-inactive"
	inactive.IsActive = false
	mustCreate(t, s, inactive)

	eth := validAlert()
	eth.ID = "a-eth"
	eth.Symbol = "ETH"
	mustCreate(t, s, eth)

	got, err := s.ActiveBySymbol(ctx, "btc")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a-active" {
		t.Errorf("ActiveBySymbol = %+v, want only a-active", got)
	}

	symbols, err := s.ActiveSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 || symbols[0] != "BTC" || symbols[1] != "ETH" {
		t.Errorf("ActiveSymbols = %v, want [BTC ETH]", symbols)
	}
}

func TestStoreListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		a := validAlert()
		a.ID = id
		a.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		mustCreate(t, s, a)
	}

	other := validAlert()
	other.ID = "other-user"
	other.UserID = "u2"
	mustCreate(t, s, other)

	got, err := s.ListByUser(ctx, "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("ListByUser = %d alerts, want 3", len(got))
	}
	if got[0].ID != "new" || got[2].ID != "old" {
		t.Errorf("order = [%s %s %s], want newest first", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMarkTriggeredCAS(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := mustCreate(t, s, validAlert())

	at := time.Now()
	won, err := s.MarkTriggered(ctx, a.ID, 51000, at)
	if err != nil || !won {
		t.Fatalf("first MarkTriggered: won=%v err=%v", won, err)
	}

	won, err = s.MarkTriggered(ctx, a.ID, 52000, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Error("second MarkTriggered won; trigger is not one-shot")
	}

	got, _ := s.Get(ctx, a.ID)
	if !got.IsTriggered || got.TriggeredPrice != 51000 {
		t.Errorf("alert after trigger = %+v, first trigger must stick", got)
	}
	if got.TriggeredAt == nil || !got.TriggeredAt.Equal(at) {
		t.Errorf("TriggeredAt = %v, want %v", got.TriggeredAt, at)
	}
}

func TestMarkTriggeredConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := mustCreate(t, s, validAlert())

	const racers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.MarkTriggered(ctx, a.ID, 51000, time.Now())
			if err != nil {
				t.Error(err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d racers won the trigger, want exactly 1", wins)
	}
}

func TestMarkTriggeredUnknownAlert(t *testing.T) {
	_, err := newStore().MarkTriggered(context.Background(), "ghost", 1, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
