// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

// Package kv defines the minimal key-value storage interface backing the
// profile and alert stores. The in-memory implementation is the test and
// standalone reference; Badger provides the persistent implementation.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Store is a minimal transactional key-value store.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan calls fn for every key with the given prefix, in key order.
	// Returning a non-nil error from fn stops the scan and propagates it.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Update runs fn inside a read-modify-write transaction for key.
	// fn receives the current value (nil if absent) and returns the new
	// value; returning a nil value deletes the key. The whole operation
	// is atomic with respect to concurrent Updates of the same key.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error

	// Close releases underlying resources.
	Close() error
}
