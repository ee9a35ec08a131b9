// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package market delivers cryptocurrency price ticks. A Feed pushes ticks
// per symbol; the PriceCache keeps the latest tick plus enough history to
// answer "price as of N hours ago" for percentage-change alerts.
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Tick is one price observation for a symbol.
type Tick struct {
	// Symbol is the uppercase asset symbol, e.g. "BTC".
	Symbol string `json:"symbol"`

	// Price is the quote in the configured fiat currency.
	Price float64 `json:"price"`

	Timestamp time.Time `json:"timestamp"`

	// Source names the producing feed, e.g. "poll" or "websocket".
	Source string `json:"source,omitempty"`
}

// Validate checks the tick is usable.
func (t Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("tick: missing symbol")
	}
	if t.Price <= 0 {
		return fmt.Errorf("tick %s: non-positive price %g", t.Symbol, t.Price)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("tick %s: missing timestamp", t.Symbol)
	}
	return nil
}

// NormalizeSymbol canonicalizes a symbol for cache keys and topics.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// tickTopicPrefix namespaces tick topics on the message bus.
const tickTopicPrefix = "market.ticks."

// TopicForSymbol returns the bus topic carrying ticks for a symbol.
func TopicForSymbol(symbol string) string {
	return tickTopicPrefix + NormalizeSymbol(symbol)
}

// EncodeTick serializes a tick for the bus.
func EncodeTick(t Tick) ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTick deserializes a bus payload.
func DecodeTick(payload []byte) (Tick, error) {
	var t Tick
	if err := json.Unmarshal(payload, &t); err != nil {
		return Tick{}, fmt.Errorf("decode tick: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tick{}, err
	}
	return t, nil
}
