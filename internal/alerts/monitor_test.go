// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/market"
	"github.com/coinscope/coinscope/internal/storage/kv"
)

// recordingDispatcher captures notifications and signals each arrival.
type recordingDispatcher struct {
	mu       sync.Mutex
	sent     []Notification
	arrivals chan Notification
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{arrivals: make(chan Notification, 16)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n Notification) {
	d.mu.Lock()
	d.sent = append(d.sent, n)
	d.mu.Unlock()
	d.arrivals <- n
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type monitorEnv struct {
	store      Store
	cache      *market.MemoryPriceCache
	feed       *market.ChannelFeed
	dispatcher *recordingDispatcher
	monitor    *Monitor
}

func newMonitorEnv(t *testing.T) *monitorEnv {
	t.Helper()

	env := &monitorEnv{
		store:      NewKVStore(kv.NewMemory()),
		cache:      market.NewMemoryPriceCache(0),
		feed:       market.NewChannelFeed(zerolog.Nop()),
		dispatcher: newRecordingDispatcher(),
	}
	env.monitor = NewMonitor(env.store, env.cache, env.feed, nil, env.dispatcher,
		MonitorConfig{PollInterval: time.Hour}, zerolog.Nop())

	t.Cleanup(func() {
		env.monitor.Stop()
		env.feed.Close()
	})
	return env
}

func (env *monitorEnv) publish(t *testing.T, price float64, at time.Time) {
	t.Helper()
	if err := env.feed.Publish(context.Background(), market.Tick{
		Symbol: "BTC", Price: price, Timestamp: at,
	}); err != nil {
		t.Fatal(err)
	}
}

func (env *monitorEnv) waitNotification(t *testing.T) Notification {
	t.Helper()
	select {
	case n := <-env.dispatcher.arrivals:
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("no notification arrived")
		return Notification{}
	}
}

func TestMonitorEndToEndOneShot(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	a := validAlert() // BTC above 50000
	a.ID = "alert-1"
	if err := env.store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := env.monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	now := time.Now()

	// Below target: nothing fires.
	env.publish(t, 49000, now)
	time.Sleep(100 * time.Millisecond)
	if env.dispatcher.count() != 0 {
		t.Fatal("alert fired below target")
	}

	// Crossing the target fires exactly once.
	env.publish(t, 51000, now.Add(time.Second))
	n := env.waitNotification(t)
	if n.Alert.ID != "alert-1" || n.Price != 51000 {
		t.Errorf("notification = %+v", n)
	}
	if n.Message == "" {
		t.Error("empty notification message")
	}

	// Still above target: the one-shot alert stays quiet.
	env.publish(t, 52000, now.Add(2*time.Second))
	time.Sleep(200 * time.Millisecond)
	if got := env.dispatcher.count(); got != 1 {
		t.Errorf("notifications = %d, want exactly 1", got)
	}

	stored, err := env.store.Get(ctx, "alert-1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsTriggered || stored.TriggeredPrice != 51000 {
		t.Errorf("stored alert = %+v", stored)
	}
}

func TestMonitorStartStopIdempotent(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	if err := env.monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.monitor.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !env.monitor.Running() {
		t.Fatal("monitor not running after Start")
	}

	env.monitor.Stop()
	env.monitor.Stop()
	if env.monitor.Running() {
		t.Fatal("monitor running after Stop")
	}

	// Restart works.
	if err := env.monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !env.monitor.Running() {
		t.Fatal("monitor not running after restart")
	}
}

func TestMonitorWatchAddsSymbolWhileRunning(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	if err := env.monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	a := validAlert()
	a.ID = "late-alert"
	if err := env.store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := env.monitor.Watch("BTC"); err != nil {
		t.Fatal(err)
	}

	env.publish(t, 51000, time.Now())
	n := env.waitNotification(t)
	if n.Alert.ID != "late-alert" {
		t.Errorf("notification = %+v", n)
	}
}

func TestMonitorTickUpdatesCache(t *testing.T) {
	env := newMonitorEnv(t)
	ctx := context.Background()

	a := validAlert()
	a.ID = "alert-1"
	a.TargetPrice = 99999999 // never fires
	if err := env.store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := env.monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	at := time.Now()
	env.publish(t, 48000, at)

	deadline := time.Now().Add(2 * time.Second)
	for {
		last, ok, err := env.cache.Last(ctx, "BTC")
		if err != nil {
			t.Fatal(err)
		}
		if ok && last.Price == 48000 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tick never reached the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := env.monitor.Status()
	if !status.Running || status.TicksProcessed == 0 {
		t.Errorf("status = %+v", status)
	}
}

// stubFetcher returns fixed prices.
type stubFetcher struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  int
}

func (f *stubFetcher) FetchPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func TestMonitorPollRefreshesStalePrices(t *testing.T) {
	store := NewKVStore(kv.NewMemory())
	cache := market.NewMemoryPriceCache(0)
	feed := market.NewChannelFeed(zerolog.Nop())
	dispatcher := newRecordingDispatcher()
	fetcher := &stubFetcher{prices: map[string]float64{"BTC": 51000}}

	monitor := NewMonitor(store, cache, feed, fetcher, dispatcher,
		MonitorConfig{PollInterval: 50 * time.Millisecond, StaleAfter: time.Minute}, zerolog.Nop())
	t.Cleanup(func() {
		monitor.Stop()
		feed.Close()
	})

	ctx := context.Background()
	a := validAlert()
	a.ID = "alert-1"
	if err := store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	// No feed traffic at all: the poll loop must fetch and trigger.
	if err := monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case n := <-dispatcher.arrivals:
		if n.Price != 51000 {
			t.Errorf("notification price = %v", n.Price)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("poll fallback never triggered the alert")
	}
}

// blockingDispatcher parks every delivery until released and counts
// completions.
type blockingDispatcher struct {
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	count   int
}

func (d *blockingDispatcher) Dispatch(_ context.Context, _ Notification) {
	select {
	case d.entered <- struct{}{}:
	default:
	}
	<-d.release
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
}

func (d *blockingDispatcher) completed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func TestMonitorStopWaitsForInFlightDelivery(t *testing.T) {
	store := NewKVStore(kv.NewMemory())
	cache := market.NewMemoryPriceCache(0)
	feed := market.NewChannelFeed(zerolog.Nop())
	d := &blockingDispatcher{entered: make(chan struct{}, 1), release: make(chan struct{})}

	monitor := NewMonitor(store, cache, feed, nil, d,
		MonitorConfig{PollInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(func() { feed.Close() })

	ctx := context.Background()
	a := validAlert()
	a.ID = "alert-1"
	if err := store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := feed.Publish(ctx, market.Tick{Symbol: "BTC", Price: 51000, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-d.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("delivery never started")
	}

	stopped := make(chan struct{})
	go func() {
		monitor.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a delivery was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(d.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned after delivery finished")
	}
	if got := d.completed(); got != 1 {
		t.Fatalf("deliveries = %d, want 1", got)
	}

	// A feed callback still in flight when Stop ran delivers inline rather
	// than racing the stopped monitor's WaitGroup.
	eth := validAlert()
	eth.ID = "alert-2"
	eth.Symbol = "ETH"
	if err := store.Create(ctx, eth); err != nil {
		t.Fatal(err)
	}
	monitor.onTick(ctx, market.Tick{Symbol: "ETH", Price: 51000, Timestamp: time.Now()})
	if got := d.completed(); got != 2 {
		t.Errorf("deliveries = %d, want 2 (post-stop delivery runs inline)", got)
	}
}

func TestManagerCreateValidatesAndStartsMonitor(t *testing.T) {
	env := newMonitorEnv(t)
	mgr := NewManager(env.store, env.monitor, zerolog.Nop())
	ctx := context.Background()

	bad := validAlert()
	bad.TargetPrice = 0
	if _, err := mgr.Create(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if env.monitor.Running() {
		t.Fatal("monitor started for an invalid alert")
	}

	created, err := mgr.Create(ctx, validAlert())
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Error("no id assigned")
	}
	if !created.IsActive || created.IsTriggered {
		t.Errorf("fresh alert state = %+v", created)
	}
	if !env.monitor.Running() {
		t.Error("creating the first alert did not start the monitor")
	}

	// Symbol is normalized on the way in.
	lower := validAlert()
	lower.Symbol = "eth"
	created2, err := mgr.Create(ctx, lower)
	if err != nil {
		t.Fatal(err)
	}
	if created2.Symbol != "ETH" {
		t.Errorf("symbol = %q, want ETH", created2.Symbol)
	}
}

func TestManagerOwnershipChecks(t *testing.T) {
	env := newMonitorEnv(t)
	mgr := NewManager(env.store, env.monitor, zerolog.Nop())
	ctx := context.Background()

	created, err := mgr.Create(ctx, validAlert())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Get(ctx, "t1", "intruder", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user Get = %v, want ErrNotFound", err)
	}
	if err := mgr.Delete(ctx, "t2", "u1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant Delete = %v, want ErrNotFound", err)
	}
	if err := mgr.Delete(ctx, "t1", "u1", created.ID); err != nil {
		t.Errorf("owner Delete = %v", err)
	}
}

func TestManagerUpdatePreservesTriggerState(t *testing.T) {
	env := newMonitorEnv(t)
	mgr := NewManager(env.store, env.monitor, zerolog.Nop())
	ctx := context.Background()

	created, err := mgr.Create(ctx, validAlert())
	if err != nil {
		t.Fatal(err)
	}

	at := time.Now()
	if _, err := env.store.MarkTriggered(ctx, created.ID, 51000, at); err != nil {
		t.Fatal(err)
	}

	patch := *created
	patch.TargetPrice = 60000
	patch.IsTriggered = false // client cannot re-arm through update
	updated, err := mgr.Update(ctx, "t1", "u1", &patch)
	if err != nil {
		t.Fatal(err)
	}
	if updated.TargetPrice != 60000 {
		t.Errorf("target = %v, want 60000", updated.TargetPrice)
	}
	if !updated.IsTriggered || updated.TriggeredPrice != 51000 {
		t.Errorf("trigger state not preserved: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update")
	}
}

func TestManagerGetUserAlerts(t *testing.T) {
	env := newMonitorEnv(t)
	mgr := NewManager(env.store, env.monitor, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := mgr.Create(ctx, validAlert()); err != nil {
			t.Fatal(err)
		}
	}

	got, err := mgr.GetUserAlerts(ctx, "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("GetUserAlerts = %d, want 3", len(got))
	}
}
