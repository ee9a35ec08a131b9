// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrExternalService marks upstream market-data failures, including an open
// circuit breaker.
var ErrExternalService = errors.New("market data service unavailable")

// Fetcher pulls spot prices on demand. The monitor uses it to refresh
// symbols whose cached price has gone stale.
type Fetcher interface {
	// FetchPrices returns current prices for the given symbols. Symbols
	// unknown upstream are absent from the result.
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// FetcherConfig configures the HTTP fetcher.
type FetcherConfig struct {
	// BaseURL of a coingecko-compatible API.
	BaseURL string

	// VsCurrency is the quote currency, e.g. "usd".
	VsCurrency string

	Timeout time.Duration

	// RatePerSec and Burst bound outbound request rate.
	RatePerSec float64
	Burst      int

	// BreakerName labels the circuit breaker in logs.
	BreakerName string
}

func (c *FetcherConfig) withDefaults() FetcherConfig {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if out.VsCurrency == "" {
		out.VsCurrency = "usd"
	}
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.RatePerSec <= 0 {
		out.RatePerSec = 0.5
	}
	if out.Burst <= 0 {
		out.Burst = 1
	}
	if out.BreakerName == "" {
		out.BreakerName = "market-fetcher"
	}
	return out
}

// HTTPFetcher is a rate-limited, circuit-broken client for a
// coingecko-compatible price API.
type HTTPFetcher struct {
	cfg     FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[map[string]float64]
	logger  zerolog.Logger

	// symbolToID maps ticker symbols to upstream coin ids.
	symbolToID map[string]string
}

// Symbol to coingecko id for the majors. Anything else is queried by its
// lowercased symbol.
var defaultSymbolIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
}

// NewHTTPFetcher creates the fetcher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPFetcher(cfg FetcherConfig, logger zerolog.Logger) *HTTPFetcher {
	cfg = cfg.withDefaults()
	componentLogger := logger.With().Str("component", "market.fetcher").Logger()

	breaker := gobreaker.NewCircuitBreaker[map[string]float64](gobreaker.Settings{
		Name:    cfg.BreakerName,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &HTTPFetcher{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker:    breaker,
		logger:     componentLogger,
		symbolToID: defaultSymbolIDs,
	}
}

// FetchPrices implements Fetcher.
func (f *HTTPFetcher) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	prices, err := f.breaker.Execute(func() (map[string]float64, error) {
		return f.fetch(ctx, symbols)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit open", ErrExternalService)
	}
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, symbols []string) (map[string]float64, error) {
	idToSymbol := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		symbol := NormalizeSymbol(s)
		id, ok := f.symbolToID[symbol]
		if !ok {
			id = strings.ToLower(symbol)
		}
		idToSymbol[id] = symbol
		ids = append(ids, id)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		f.cfg.BaseURL, url.QueryEscape(strings.Join(ids, ",")), url.QueryEscape(f.cfg.VsCurrency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil, fmt.Errorf("%w: status %d", ErrExternalService, resp.StatusCode)
	}

	// Response shape: {"bitcoin": {"usd": 50000.1}, ...}
	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExternalService, err)
	}

	prices := make(map[string]float64, len(body))
	for id, quotes := range body {
		symbol, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if price, ok := quotes[f.cfg.VsCurrency]; ok && price > 0 {
			prices[symbol] = price
		}
	}
	return prices, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
