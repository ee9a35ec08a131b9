// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Command server runs the Coinscope recommendation and price-alert service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coinscope/coinscope/internal/alerts"
	"github.com/coinscope/coinscope/internal/alerts/delivery"
	"github.com/coinscope/coinscope/internal/api"
	"github.com/coinscope/coinscope/internal/config"
	"github.com/coinscope/coinscope/internal/content"
	"github.com/coinscope/coinscope/internal/entitlement"
	"github.com/coinscope/coinscope/internal/logging"
	"github.com/coinscope/coinscope/internal/market"
	"github.com/coinscope/coinscope/internal/profile"
	"github.com/coinscope/coinscope/internal/recommend"
	"github.com/coinscope/coinscope/internal/recommend/algorithms"
	"github.com/coinscope/coinscope/internal/storage/kv"
	"github.com/coinscope/coinscope/internal/supervisor"
	"github.com/coinscope/coinscope/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

//nolint:gocyclo // wiring the full service graph is inherently sequential
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger := logging.Get()
	logger.Info().
		Str("feed_backend", cfg.Market.FeedBackend).
		Str("storage_backend", cfg.Storage.Backend).
		Msg("starting coinscope")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores.
	catalog, kvBackend, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer kvBackend.Close()

	priceCache, err := openPriceCache(cfg)
	if err != nil {
		return err
	}

	// Tick feed, optionally with an in-process broker.
	feed, broker, err := openFeed(cfg, logger)
	if err != nil {
		return err
	}
	defer feed.Close()
	if broker != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := broker.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("embedded broker shutdown")
			}
		}()
	}

	var fetcher market.Fetcher
	if cfg.Market.Fetcher.Enabled {
		fetcher = market.NewHTTPFetcher(market.FetcherConfig{
			BaseURL:     cfg.Market.Fetcher.BaseURL,
			VsCurrency:  cfg.Market.Fetcher.VsCurrency,
			Timeout:     cfg.Market.Fetcher.Timeout,
			RatePerSec:  cfg.Market.Fetcher.RatePerSec,
			Burst:       cfg.Market.Fetcher.Burst,
			BreakerName: cfg.Market.Fetcher.BreakerName,
		}, logger)
	}

	// Entitlements.
	var checker entitlement.Checker
	if cfg.Entitlements.AllowAll {
		checker = entitlement.AllowAll()
	} else {
		checker = entitlement.NewStaticChecker(nil, cfg.Entitlements.Tenants)
	}

	// Profiles and recommendations.
	profileStore := profile.NewKVStore(kvBackend)
	profiles := profile.NewManager(profileStore, catalog, logger)

	engine, err := recommend.NewEngine(
		[]recommend.Strategy{
			algorithms.NewCollaborative(profileStore, nil, logger),
			algorithms.NewContentBased(profileStore, catalog, logger),
			algorithms.NewBehavioral(profileStore, catalog, logger),
			algorithms.NewTrending(catalog, logger),
		},
		profileStore,
		catalog,
		checker,
		logger,
		recommend.WithCacheTTL(cfg.Recommend.CacheTTL),
		recommend.WithWeights(recommend.Weights{
			recommend.StrategyCollaborative: cfg.Recommend.Weights.Collaborative,
			recommend.StrategyContentBased:  cfg.Recommend.Weights.ContentBased,
			recommend.StrategyBehavioral:    cfg.Recommend.Weights.Behavioral,
			recommend.StrategyTrending:      cfg.Recommend.Weights.Trending,
		}),
	)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	// Alerts.
	dispatcher, err := buildDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	alertStore := alerts.NewKVStore(kvBackend)
	monitor := alerts.NewMonitor(alertStore, priceCache, feed, fetcher, dispatcher,
		alerts.MonitorConfig{
			PollInterval: cfg.Market.PollInterval,
			StaleAfter:   cfg.Market.StaleAfter,
		}, logger)
	alertMgr := alerts.NewManager(alertStore, monitor, logger)

	// HTTP surface.
	handler := api.NewHandler(engine, profiles, alertMgr, catalog, checker, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins:    cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimit,
		RateLimitWindow:   cfg.Server.RateWindow,
	})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(slogLogger(cfg.Logging.Level), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMarketService(services.NewMonitorService(monitor))
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	logger.Info().Str("addr", httpServer.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// openStores builds the content catalog and the shared KV backend per the
// configured storage backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openStores(cfg *config.Config, logger zerolog.Logger) (content.Store, kv.Store, error) {
	if cfg.Storage.Backend == "memory" {
		return content.NewMemoryStore(), kv.NewMemory(), nil
	}

	catalog, err := content.OpenDuckStore(cfg.Storage.DuckDBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open content store: %w", err)
	}
	kvBackend, err := kv.OpenBadger(cfg.Storage.BadgerDir, logger)
	if err != nil {
		catalog.Close()
		return nil, nil, fmt.Errorf("open kv store: %w", err)
	}
	return catalog, kvBackend, nil
}

// openPriceCache picks Redis when enabled, otherwise the in-memory cache.
func openPriceCache(cfg *config.Config) (market.PriceCache, error) {
	if !cfg.Redis.Enabled {
		return market.NewMemoryPriceCache(cfg.Market.HistoryRetention), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return market.NewRedisPriceCache(client, cfg.Market.HistoryRetention), nil
}

// openFeed builds the configured tick feed. For the nats backend with the
// embedded broker enabled it also starts and returns the broker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openFeed(cfg *config.Config, logger zerolog.Logger) (market.Feed, *market.EmbeddedBroker, error) {
	switch cfg.Market.FeedBackend {
	case "channel":
		return market.NewChannelFeed(logger), nil, nil

	case "websocket":
		return market.NewWSFeed(cfg.Market.WebsocketURL, logger), nil, nil

	case "nats":
		url := cfg.NATS.URL
		var broker *market.EmbeddedBroker
		if cfg.NATS.EmbeddedServer {
			b, err := market.StartEmbeddedBroker(market.EmbeddedBrokerConfig{})
			if err != nil {
				return nil, nil, err
			}
			broker = b
			url = b.ClientURL()
		}
		feed, err := market.NewNATSFeed(market.NATSFeedConfig{
			URL:           url,
			QueueGroup:    cfg.NATS.QueueGroup,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			CloseTimeout:  cfg.NATS.CloseTimeout,
		}, logger)
		if err != nil {
			if broker != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				broker.Shutdown(shutdownCtx) //nolint:errcheck // already failing
			}
			return nil, nil, fmt.Errorf("connect nats feed: %w", err)
		}
		return feed, broker, nil

	default:
		return nil, nil, fmt.Errorf("unknown feed backend %q", cfg.Market.FeedBackend)
	}
}

// buildDispatcher registers the configured notification channels.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func buildDispatcher(cfg *config.Config, logger zerolog.Logger) (*delivery.Manager, error) {
	registry := delivery.NewRegistry()

	if err := registry.Register(delivery.NewWebhookChannel(cfg.Alerts.WebhookTimeout)); err != nil {
		return nil, err
	}
	if cfg.Alerts.SMTP.Host != "" {
		email := delivery.NewEmailChannel(delivery.SMTPConfig{
			Host:     cfg.Alerts.SMTP.Host,
			Port:     cfg.Alerts.SMTP.Port,
			From:     cfg.Alerts.SMTP.From,
			Username: cfg.Alerts.SMTP.Username,
			Password: cfg.Alerts.SMTP.Password,
		}, emailResolver)
		if err := registry.Register(email); err != nil {
			return nil, err
		}
	}
	if cfg.Alerts.PushGatewayURL != "" {
		push := delivery.NewPushChannel(delivery.NewHTTPPushGateway(cfg.Alerts.PushGatewayURL, "", 0))
		if err := registry.Register(push); err != nil {
			return nil, err
		}
	}

	return delivery.NewManager(registry, 0, logger), nil
}

// emailResolver maps a user to an address. Standalone deployments use the
// email address itself as the user id; an account directory replaces this
// in multi-service setups.
func emailResolver(tenantID, userID string) (string, error) {
	if strings.Contains(userID, "@") {
		return userID, nil
	}
	return "", fmt.Errorf("no email address on record for user %s", userID)
}

// slogLogger builds the slog bridge for suture event logging at the
// configured level.
func slogLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
