// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TickHandler consumes one tick. Handlers run on the feed's goroutine and
// must not block for long.
type TickHandler func(Tick)

// Feed delivers price ticks per symbol. Subscribing twice to the same symbol
// replaces the handler. Implementations must be safe for concurrent use.
type Feed interface {
	// Subscribe starts delivering ticks for a symbol to the handler until
	// Unsubscribe, Close or context cancellation.
	Subscribe(ctx context.Context, symbol string, h TickHandler) error

	// Unsubscribe stops delivery for a symbol. Unknown symbols are a no-op.
	Unsubscribe(symbol string)

	// Close stops all deliveries.
	Close() error
}

// ChannelFeed is an in-process Feed over watermill's gochannel pub/sub. It
// backs tests and standalone deployments; producers push ticks through
// Publish.
type ChannelFeed struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
	closed bool
}

// NewChannelFeed creates an in-process feed.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewChannelFeed(logger zerolog.Logger) *ChannelFeed {
	return &ChannelFeed{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		logger: logger.With().Str("component", "market.feed").Logger(),
		cancel: make(map[string]context.CancelFunc),
	}
}

// Publish pushes a tick to subscribers of its symbol.
func (f *ChannelFeed) Publish(ctx context.Context, t Tick) error {
	if err := t.Validate(); err != nil {
		return err
	}

	payload, err := EncodeTick(t)
	if err != nil {
		return fmt.Errorf("encode tick: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if err := f.pubsub.Publish(TopicForSymbol(t.Symbol), msg); err != nil {
		return fmt.Errorf("publish tick %s: %w", t.Symbol, err)
	}
	return nil
}

// Subscribe implements Feed.
func (f *ChannelFeed) Subscribe(ctx context.Context, symbol string, h TickHandler) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("subscribe: missing symbol")
	}
	if h == nil {
		return fmt.Errorf("subscribe %s: nil handler", symbol)
	}

	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := f.pubsub.Subscribe(subCtx, TopicForSymbol(symbol))
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

func (f *ChannelFeed) consume(symbol string, msgs <-chan *message.Message, h TickHandler) {
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
func (f *ChannelFeed) Unsubscribe(symbol string) {
	symbol = NormalizeSymbol(symbol)

	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.cancel[symbol]; ok {
		cancel()
		delete(f.cancel, symbol)
	}
}

// Close implements Feed.
func (f *ChannelFeed) Close() error {
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

	return f.pubsub.Close()
}

var _ Feed = (*ChannelFeed)(nil)
