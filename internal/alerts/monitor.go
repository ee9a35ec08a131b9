// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package alerts

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/market"
	"github.com/coinscope/coinscope/internal/metrics"
)

// Dispatcher delivers a notification for a fired alert. Delivery runs after
// the trigger is committed and must never roll it back.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// MonitorConfig tunes the monitor loops.
type MonitorConfig struct {
	// PollInterval is the fallback re-evaluation cadence.
	PollInterval time.Duration

	// StaleAfter is the maximum cached-price age the poll loop will
	// evaluate without refreshing.
	StaleAfter time.Duration
}

func (c *MonitorConfig) withDefaults() MonitorConfig {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = 30 * time.Second
	}
	if out.StaleAfter <= 0 {
		out.StaleAfter = time.Minute
	}
	return out
}

// Monitor drives alert evaluation. Feed ticks update the price cache and
// evaluate that symbol's alerts immediately; a polling loop re-evaluates
// cached prices as a fallback and, when a fetcher is configured, refreshes
// symbols whose cached price has gone stale.
type Monitor struct {
	store      Store
	cache      market.PriceCache
	feed       market.Feed
	fetcher    market.Fetcher // optional
	evaluator  *Evaluator
	dispatcher Dispatcher
	cfg        MonitorConfig
	logger     zerolog.Logger

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	watched map[string]struct{}
	wg      sync.WaitGroup

	ticks atomic.Int64
}

// NewMonitor creates a monitor. fetcher may be nil, in which case stale
// symbols simply wait for the next feed tick.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMonitor(
	store Store,
	cache market.PriceCache,
	feed market.Feed,
	fetcher market.Fetcher,
	dispatcher Dispatcher,
	cfg MonitorConfig,
	logger zerolog.Logger,
) *Monitor {
	return &Monitor{
		store:      store,
		cache:      cache,
		feed:       feed,
		fetcher:    fetcher,
		evaluator:  NewEvaluator(cache),
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		logger:     logger.With().Str("component", "alerts.monitor").Logger(),
		watched:    make(map[string]struct{}),
	}
}

// Start subscribes to the feed for every symbol with an active untriggered
// alert and starts the polling fallback. Starting a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	symbols, err := m.store.ActiveSymbols(ctx)
	if err != nil {
		return err
	}

	m.runCtx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.running = true

	for _, symbol := range symbols {
		if err := m.subscribeLocked(symbol); err != nil {
			m.logger.Error().Err(err).Str("symbol", symbol).Msg("feed subscription failed")
		}
	}

	m.wg.Add(1)
	go m.pollLoop(m.runCtx)

	m.logger.Info().
		Int("symbols", len(symbols)).
		Dur("poll_interval", m.cfg.PollInterval).
		Msg("alert monitor started")
	return nil
}

// Stop cancels subscriptions and the polling loop. Stopping a stopped
// monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.cancel()
	for symbol := range m.watched {
		m.feed.Unsubscribe(symbol)
	}
	m.watched = make(map[string]struct{})
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info().Msg("alert monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Watch subscribes the monitor to a symbol. It is called when an alert is
// created for a symbol not yet covered; a no-op when stopped or already
// watching.
func (m *Monitor) Watch(symbol string) error {
	symbol = market.NormalizeSymbol(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	if _, ok := m.watched[symbol]; ok {
		return nil
	}
	return m.subscribeLocked(symbol)
}

func (m *Monitor) subscribeLocked(symbol string) error {
	symbol = market.NormalizeSymbol(symbol)
	ctx := m.runCtx
	if err := m.feed.Subscribe(ctx, symbol, func(t market.Tick) { m.onTick(ctx, t) }); err != nil {
		return err
	}
	m.watched[symbol] = struct{}{}
	return nil
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Running        bool     `json:"running"`
	Symbols        []string `json:"symbols"`
	TicksProcessed int64    `json:"ticks_processed"`
}

// Status returns the monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.watched))
	for s := range m.watched {
		symbols = append(symbols, s)
	}
	running := m.running
	m.mu.Unlock()

	return Status{
		Running:        running,
		Symbols:        symbols,
		TicksProcessed: m.ticks.Load(),
	}
}

// onTick caches the tick and evaluates the symbol's alerts.
func (m *Monitor) onTick(ctx context.Context, t market.Tick) {
	m.ticks.Add(1)
	metrics.TicksProcessed.Inc()

	if err := m.cache.Put(ctx, t); err != nil {
		m.logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("tick rejected by cache")
		return
	}
	m.evaluateSymbol(ctx, t)
}

// evaluateSymbol runs every active alert for the tick's symbol. A failing
// alert is logged and skipped; it never stops the sweep.
func (m *Monitor) evaluateSymbol(ctx context.Context, t market.Tick) {
	alerts, err := m.store.ActiveBySymbol(ctx, t.Symbol)
	if err != nil {
		m.logger.Error().Err(err).Str("symbol", t.Symbol).Msg("loading alerts failed")
		return
	}

	for _, a := range alerts {
		if err := m.evaluateAlert(ctx, a, t); err != nil {
			metrics.AlertEvalErrors.Inc()
			m.logger.Error().Err(err).
				Str("alert_id", a.ID).
				Str("symbol", t.Symbol).
				Msg("alert evaluation failed")
		}
	}
}

// evaluateAlert fires the alert if its condition holds. The store CAS makes
// the trigger one-shot even when feed and poll evaluations race.
func (m *Monitor) evaluateAlert(ctx context.Context, a *Alert, t market.Tick) error {
	fire, err := m.evaluator.ShouldTrigger(ctx, a, t)
	if err != nil || !fire {
		return err
	}

	won, err := m.store.MarkTriggered(ctx, a.ID, t.Price, t.Timestamp)
	if err != nil || !won {
		return err
	}

	metrics.AlertsTriggered.WithLabelValues(string(a.Condition)).Inc()
	m.logger.Info().
		Str("alert_id", a.ID).
		Str("symbol", a.Symbol).
		Str("condition", string(a.Condition)).
		Float64("price", t.Price).
		Msg("alert triggered")

	triggered := *a
	triggered.IsTriggered = true
	triggered.TriggeredPrice = t.Price
	triggered.TriggeredAt = &t.Timestamp

	n := Notification{
		Alert:     &triggered,
		Price:     t.Price,
		Timestamp: t.Timestamp,
		Message:   DefaultMessage(a, t.Price),
	}

	// Delivery runs off the tick path; failures there never undo the
	// trigger. The WaitGroup add happens under the lock so a callback in
	// flight during Stop cannot race its Wait; once stopped, delivery runs
	// inline instead.
	m.mu.Lock()
	if m.running {
		m.wg.Add(1)
		m.mu.Unlock()
		go func() {
			defer m.wg.Done()
			m.dispatcher.Dispatch(ctx, n)
		}()
		return nil
	}
	m.mu.Unlock()
	m.dispatcher.Dispatch(ctx, n)
	return nil
}

// pollLoop is the fallback for quiet or broken feeds. Every interval it
// re-evaluates each watched symbol from the cache, refreshing stale prices
// through the fetcher when one is configured.
func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	symbols, err := m.store.ActiveSymbols(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("poll: loading symbols failed")
		return
	}

	var stale []string
	now := time.Now()
	for _, symbol := range symbols {
		last, ok, err := m.cache.Last(ctx, symbol)
		if err != nil {
			m.logger.Error().Err(err).Str("symbol", symbol).Msg("poll: cache read failed")
			continue
		}
		if !ok || now.Sub(last.Timestamp) > m.cfg.StaleAfter {
			metrics.TicksStale.Inc()
			stale = append(stale, symbol)
			continue
		}
		m.evaluateSymbol(ctx, last)
	}

	if len(stale) == 0 || m.fetcher == nil {
		return
	}

	prices, err := m.fetcher.FetchPrices(ctx, stale)
	if err != nil {
		m.logger.Warn().Err(err).Strs("symbols", stale).Msg("poll: price refresh failed")
		return
	}
	for symbol, price := range prices {
		m.onTick(ctx, market.Tick{
			Symbol:    symbol,
			Price:     price,
			Timestamp: time.Now(),
			Source:    "poll",
		})
	}
}
