// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSFeedConfig configures the NATS-backed feed.
type NATSFeedConfig struct {
	// URL is the NATS server address, e.g. nats://localhost:4222.
	URL string

	// QueueGroup load-balances delivery across instances. Empty means every
	// instance receives every tick.
	QueueGroup string

	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

func (c *NATSFeedConfig) withDefaults() NATSFeedConfig {
	out := *c
	if out.MaxReconnects == 0 {
		out.MaxReconnects = -1 // retry forever
	}
	if out.ReconnectWait <= 0 {
		out.ReconnectWait = 2 * time.Second
	}
	if out.CloseTimeout <= 0 {
		out.CloseTimeout = 10 * time.Second
	}
	return out
}

// NATSFeed consumes price ticks published to NATS, one subject per symbol.
// Core NATS delivery is sufficient; a missed tick is superseded by the next
// one and the polling fallback covers gaps.
type NATSFeed struct {
	subscriber message.Subscriber
	logger     zerolog.Logger

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
	closed bool
}

// NewNATSFeed connects a watermill subscriber to the configured server.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewNATSFeed(cfg NATSFeedConfig, logger zerolog.Logger) (*NATSFeed, error) {
	cfg = cfg.withDefaults()
	componentLogger := logger.With().Str("component", "market.natsfeed").Logger()

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				componentLogger.Warn().Err(err).Msg("feed disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			componentLogger.Info().Str("url", nc.ConnectedUrl()).Msg("feed reconnected")
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &NATSFeed{
		subscriber: sub,
		logger:     componentLogger,
		cancel:     make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe implements Feed.
func (f *NATSFeed) Subscribe(ctx context.Context, symbol string, h TickHandler) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("subscribe: missing symbol")
	}
	if h == nil {
		return fmt.Errorf("subscribe %s: nil handler", symbol)
	}

	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := f.subscriber.Subscribe(subCtx, TopicForSymbol(symbol))
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		cancel()
		return fmt.Errorf("subscribe %s: feed closed", symbol)
	}
	if prev, ok := f.cancel[symbol]; ok {
		prev()
	}
	f.cancel[symbol] = cancel
	f.mu.Unlock()

	go f.consume(symbol, msgs, h)
	return nil
}

func (f *NATSFeed) consume(symbol string, msgs <-chan *message.Message, h TickHandler) {
	for msg := range msgs {
		t, err := DecodeTick(msg.Payload)
		if err != nil {
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("dropping malformed tick")
			msg.Ack()
			continue
		}
		h(t)
		msg.Ack()
	}
}

// Unsubscribe implements Feed.
func (f *NATSFeed) Unsubscribe(symbol string) {
	symbol = NormalizeSymbol(symbol)

	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.cancel[symbol]; ok {
		cancel()
		delete(f.cancel, symbol)
	}
}

// Close implements Feed.
func (f *NATSFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for _, cancel := range f.cancel {
		cancel()
	}
	f.cancel = make(map[string]context.CancelFunc)
	f.mu.Unlock()

	return f.subscriber.Close()
}

var _ Feed = (*NATSFeed)(nil)
