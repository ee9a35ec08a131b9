// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package config loads and validates Coinscope configuration.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file, then COINSCOPE_* environment variables. Later layers override
// earlier ones.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Coinscope server.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	NATS         NATSConfig         `koanf:"nats"`
	Market       MarketConfig       `koanf:"market"`
	Storage      StorageConfig      `koanf:"storage"`
	Redis        RedisConfig        `koanf:"redis"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Alerts       AlertsConfig       `koanf:"alerts"`
	Entitlements EntitlementsConfig `koanf:"entitlements"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit"`
	RateWindow      time.Duration `koanf:"rate_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// NATSConfig holds NATS / embedded server settings for the tick feed.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
}

// MarketConfig holds market data feed and poller settings.
type MarketConfig struct {
	// FeedBackend selects the tick transport: "channel" (in-process),
	// "nats", or "websocket".
	FeedBackend string `koanf:"feed_backend"`

	// WebsocketURL is the exchange ticker stream URL (websocket backend).
	WebsocketURL string `koanf:"websocket_url"`

	// PollInterval is the monitor's polling fallback cadence.
	PollInterval time.Duration `koanf:"poll_interval"`

	// StaleAfter is the maximum cached-price age the polling fallback
	// will still evaluate.
	StaleAfter time.Duration `koanf:"stale_after"`

	// HistoryRetention bounds the per-symbol tick history kept for
	// change-over-timeframe alerts.
	HistoryRetention time.Duration `koanf:"history_retention"`

	Fetcher FetcherConfig `koanf:"fetcher"`
}

// FetcherConfig holds settings for the HTTP price poller used to refresh
// stale symbols.
type FetcherConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	RatePerSec  float64       `koanf:"rate_per_sec"`
	Burst       int           `koanf:"burst"`
	VsCurrency  string        `koanf:"vs_currency"`
	BreakerName string        `koanf:"breaker_name"`
}

// StorageConfig selects store backends.
type StorageConfig struct {
	// Backend is "memory" or "persistent".
	Backend string `koanf:"backend"`

	// DuckDBPath is the content feature store database path.
	DuckDBPath string `koanf:"duckdb_path"`

	// BadgerDir is the profile/alert KV store directory.
	BadgerDir string `koanf:"badger_dir"`
}

// RedisConfig holds the optional Redis price cache settings.
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	Weights         WeightsConfig `koanf:"weights"`
	DefaultCount    int           `koanf:"default_count"`
	MaxCount        int           `koanf:"max_count"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries"`
	StrategyTimeout time.Duration `koanf:"strategy_timeout"`
}

// WeightsConfig holds per-strategy hybrid combination weights.
// These are static configuration, not learned.
type WeightsConfig struct {
	Collaborative float64 `koanf:"collaborative"`
	ContentBased  float64 `koanf:"content_based"`
	Behavioral    float64 `koanf:"behavioral"`
	Trending      float64 `koanf:"trending"`
}

// AlertsConfig holds alert delivery settings.
type AlertsConfig struct {
	SMTP           SMTPConfig    `koanf:"smtp"`
	PushGatewayURL string        `koanf:"push_gateway_url"`
	WebhookTimeout time.Duration `koanf:"webhook_timeout"`
}

// SMTPConfig holds email channel settings.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// EntitlementsConfig maps tenants to enabled features.
type EntitlementsConfig struct {
	// AllowAll grants every feature to every tenant (standalone mode).
	AllowAll bool `koanf:"allow_all"`

	// Tenants maps tenant ID to its enabled feature names.
	Tenants map[string][]string `koanf:"tenants"`
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			MaxReconnects:  10,
			ReconnectWait:  2 * time.Second,
			AckWaitTimeout: 30 * time.Second,
			CloseTimeout:   30 * time.Second,
			DurableName:    "alert-monitor",
			QueueGroup:     "monitors",
		},
		Market: MarketConfig{
			FeedBackend:      "channel",
			PollInterval:     30 * time.Second,
			StaleAfter:       60 * time.Second,
			HistoryRetention: 25 * time.Hour,
			Fetcher: FetcherConfig{
				Enabled:     false,
				BaseURL:     "https://api.coingecko.com/api/v3",
				Timeout:     10 * time.Second,
				RatePerSec:  0.5,
				Burst:       2,
				VsCurrency:  "usd",
				BreakerName: "price-fetcher",
			},
		},
		Storage: StorageConfig{
			Backend:    "memory",
			DuckDBPath: "/data/coinscope.duckdb",
			BadgerDir:  "/data/coinscope-kv",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
		},
		Recommend: RecommendConfig{
			Weights: WeightsConfig{
				Collaborative: 0.3,
				ContentBased:  0.4,
				Behavioral:    0.2,
				Trending:      0.1,
			},
			DefaultCount:    10,
			MaxCount:        100,
			CacheTTL:        5 * time.Minute,
			CacheMaxEntries: 1000,
			StrategyTimeout: 5 * time.Second,
		},
		Alerts: AlertsConfig{
			SMTP: SMTPConfig{
				Port: 587,
			},
			WebhookTimeout: 15 * time.Second,
		},
		Entitlements: EntitlementsConfig{
			AllowAll: true,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Market.FeedBackend {
	case "channel", "nats", "websocket":
	default:
		return fmt.Errorf("market.feed_backend must be channel, nats, or websocket (got %q)", c.Market.FeedBackend)
	}
	if c.Market.FeedBackend == "websocket" && c.Market.WebsocketURL == "" {
		return fmt.Errorf("market.websocket_url required for websocket feed backend")
	}
	if c.Market.PollInterval <= 0 {
		return fmt.Errorf("market.poll_interval must be positive")
	}
	if c.Market.StaleAfter <= 0 {
		return fmt.Errorf("market.stale_after must be positive")
	}

	switch c.Storage.Backend {
	case "memory", "persistent":
	default:
		return fmt.Errorf("storage.backend must be memory or persistent (got %q)", c.Storage.Backend)
	}
	if c.Storage.Backend == "persistent" {
		if c.Storage.DuckDBPath == "" {
			return fmt.Errorf("storage.duckdb_path required for persistent backend")
		}
		if c.Storage.BadgerDir == "" {
			return fmt.Errorf("storage.badger_dir required for persistent backend")
		}
	}

	w := c.Recommend.Weights
	if w.Collaborative < 0 || w.ContentBased < 0 || w.Behavioral < 0 || w.Trending < 0 {
		return fmt.Errorf("recommend.weights must be non-negative")
	}
	if w.Collaborative+w.ContentBased+w.Behavioral+w.Trending <= 0 {
		return fmt.Errorf("recommend.weights must not all be zero")
	}
	if c.Recommend.DefaultCount <= 0 {
		return fmt.Errorf("recommend.default_count must be positive")
	}
	if c.Recommend.MaxCount < c.Recommend.DefaultCount {
		return fmt.Errorf("recommend.max_count must be >= default_count")
	}

	return nil
}
