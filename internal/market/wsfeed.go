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

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSFeed bridges an exchange-style websocket ticker stream into the Feed
// interface. The server pushes JSON ticks; one read loop dispatches them to
// per-symbol handlers. The connection reconnects with backoff until Close.
type WSFeed struct {
	url    string
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]TickHandler

	runOnce   sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// Reconnect backoff bounds.
const (
	wsInitialBackoff = time.Second
	wsMaxBackoff     = 30 * time.Second
)

// NewWSFeed creates a websocket feed for the given stream URL. The read
// loop starts on the first Subscribe.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWSFeed(url string, logger zerolog.Logger) *WSFeed {
	return &WSFeed{
		url:      url,
		logger:   logger.With().Str("component", "market.wsfeed").Logger(),
		handlers: make(map[string]TickHandler),
		done:     make(chan struct{}),
	}
}

// Subscribe implements Feed. The stream carries all symbols; subscribing
// only registers the handler that receives matching ticks.
func (f *WSFeed) Subscribe(ctx context.Context, symbol string, h TickHandler) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("subscribe: missing symbol")
	}
	if h == nil {
		return fmt.Errorf("subscribe %s: nil handler", symbol)
	}

	f.mu.Lock()
	f.handlers[symbol] = h
	f.mu.Unlock()

	f.runOnce.Do(func() { go f.run() })
	return nil
}

// Unsubscribe implements Feed.
func (f *WSFeed) Unsubscribe(symbol string) {
	f.mu.Lock()
	delete(f.handlers, NormalizeSymbol(symbol))
	f.mu.Unlock()
}

// Close implements Feed.
func (f *WSFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

// run maintains the connection, reconnecting with exponential backoff.
func (f *WSFeed) run() {
	backoff := wsInitialBackoff
	for {
		select {
		case <-f.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", f.url).Dur("retry_in", backoff).Msg("stream connect failed")
			select {
			case <-f.done:
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > wsMaxBackoff {
				backoff = wsMaxBackoff
			}
			continue
		}

		f.logger.Info().Str("url", f.url).Msg("stream connected")
		backoff = wsInitialBackoff
		f.readLoop(conn)
		conn.Close()
	}
}

// readLoop consumes messages until the connection breaks or the feed closes.
func (f *WSFeed) readLoop(conn *websocket.Conn) {
	// Unblock ReadMessage when the feed is closed.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-f.done:
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
			default:
				f.logger.Warn().Err(err).Msg("stream read failed, reconnecting")
			}
			return
		}

		t, err := DecodeTick(payload)
		if err != nil {
			f.logger.Warn().Err(err).Msg("dropping malformed stream message")
			continue
		}
		if t.Source == "" {
			t.Source = "websocket"
		}

		f.mu.RLock()
		h := f.handlers[NormalizeSymbol(t.Symbol)]
		f.mu.RUnlock()
		if h != nil {
			h(t)
		}
	}
}

var _ Feed = (*WSFeed)(nil)
