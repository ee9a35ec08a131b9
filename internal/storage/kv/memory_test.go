// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get missing = %v, want ErrKeyNotFound", err)
	}

	if err := m.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	v, err := m.Get(ctx, "a")
	if err != nil || string(v) != "1" {
		t.Fatalf("Get = %q, %v", v, err)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get after delete = %v, want ErrKeyNotFound", err)
	}

	// Deleting a missing key is not an error.
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestMemoryScanPrefixOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"alert:2", "alert:1", "profile:x", "alert:3"} {
		if err := m.Set(ctx, k, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	err := m.Scan(ctx, "alert:", func(key string, value []byte) error {
		got = append(got, key)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"alert:1", "alert:2", "alert:3"}
	if len(got) != len(want) {
		t.Fatalf("scan returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan returned %v, want %v", got, want)
		}
	}
}

func TestMemoryUpdateAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	const key = "counter"
	if err := m.Set(ctx, key, []byte("0")); err != nil {
		t.Fatal(err)
	}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Update(ctx, key, func(current []byte) ([]byte, error) {
				var n int
				fmt.Sscanf(string(current), "%d", &n)
				return []byte(fmt.Sprintf("%d", n+1)), nil
			})
		}()
	}
	wg.Wait()

	v, err := m.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != fmt.Sprintf("%d", workers) {
		t.Errorf("counter = %s, want %d (lost updates)", v, workers)
	}
}

func TestMemoryUpdateDeleteOnNil(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	err := m.Update(ctx, "k", func(current []byte) ([]byte, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("key should be deleted, got %v", err)
	}
}

func TestMemoryStringKeysMatchStoreInterface(t *testing.T) {
	ctx := context.Background()
	var s Store = NewMemory()

	if err := s.Set(ctx, "profile/t1/u1", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, "profile/t1/u2", func(current []byte) ([]byte, error) {
		if current != nil {
			t.Errorf("current = %q, want nil for absent key", current)
		}
		return []byte(`{}`), nil
	}); err != nil {
		t.Fatal(err)
	}

	var keys []string
	err := s.Scan(ctx, "profile/t1/", func(key string, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "profile/t1/u1" || keys[1] != "profile/t1/u2" {
		t.Errorf("scan keys = %v", keys)
	}
}
