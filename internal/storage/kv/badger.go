// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package kv

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Badger is a persistent Store backed by BadgerDB.
type Badger struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenBadger opens (or creates) a Badger database at dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadger(dir string, logger zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil). // badger's own logger is too chatty; we log open/close ourselves
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	logger.Info().Str("dir", dir).Msg("badger store opened")
	return &Badger{db: db, logger: logger}, nil
}

// Get returns the value for key, or ErrKeyNotFound.
func (b *Badger) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

// Set stores the value under key.
func (b *Badger) Set(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Delete removes the key.
func (b *Badger) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// Scan visits keys with the given prefix in key order.
func (b *Badger) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	pfx := []byte(prefix)
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pfx
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("badger scan value: %w", err)
			}
			if err := fn(string(item.Key()), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs an atomic read-modify-write for key inside a Badger
// transaction. Conflicting concurrent updates are retried.
func (b *Badger) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := b.db.Update(func(txn *badger.Txn) error {
			var current []byte
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				current, err = item.ValueCopy(nil)
				if err != nil {
					return err
				}
			case errors.Is(err, badger.ErrKeyNotFound):
				current = nil
			default:
				return err
			}

			next, err := fn(current)
			if err != nil {
				return err
			}
			if next == nil {
				return txn.Delete([]byte(key))
			}
			return txn.Set([]byte(key), next)
		})

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	b.logger.Info().Msg("badger store closing")
	return b.db.Close()
}

var _ Store = (*Badger)(nil)
