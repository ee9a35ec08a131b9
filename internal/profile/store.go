// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/coinscope/coinscope/internal/storage/kv"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Store persists user profiles. Implementations must be safe for concurrent
// use; Update must apply fn atomically with respect to other updates of the
// same profile.
type Store interface {
	// Get returns the profile for a user, or ErrNotFound.
	Get(ctx context.Context, tenantID, userID string) (*Profile, error)

	// Update applies fn to the profile, creating an empty one first if it
	// does not exist, and persists the result. It returns the updated
	// profile.
	Update(ctx context.Context, tenantID, userID string, fn func(*Profile) error) (*Profile, error)

	// List returns every profile in a tenant.
	List(ctx context.Context, tenantID string) ([]*Profile, error)

	// Delete removes a profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, tenantID, userID string) error

	// Close releases underlying resources.
	Close() error
}

// KVStore is a Store on top of a key-value backend. Profiles are stored as
// JSON under profile/<tenant>/<user>.
type KVStore struct {
	kv kv.Store
}

// NewKVStore wraps a key-value backend as a profile store.
func NewKVStore(backend kv.Store) *KVStore {
	return &KVStore{kv: backend}
}

func profileKey(tenantID, userID string) string {
	return "profile/" + tenantID + "/" + userID
}

func tenantPrefix(tenantID string) string {
	return "profile/" + tenantID + "/"
}

// Get returns the profile for a user, or ErrNotFound.
func (s *KVStore) Get(ctx context.Context, tenantID, userID string) (*Profile, error) {
	raw, err := s.kv.Get(ctx, profileKey(tenantID, userID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, tenantID, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s/%s: %w", tenantID, userID, err)
	}
	return decodeProfile(raw)
}

// Update applies fn atomically, creating the profile on first use.
func (s *KVStore) Update(ctx context.Context, tenantID, userID string, fn func(*Profile) error) (*Profile, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("update profile: tenant and user ids are required")
	}

	var updated *Profile
	err := s.kv.Update(ctx, profileKey(tenantID, userID), func(raw []byte) ([]byte, error) {
		var p *Profile
		if raw == nil {
			p = newProfile(tenantID, userID)
		} else {
			var derr error
			p, derr = decodeProfile(raw)
			if derr != nil {
				return nil, derr
			}
		}

		if err := fn(p); err != nil {
			return nil, err
		}
		updated = p
		return json.Marshal(p)
	})
	if err != nil {
		return nil, fmt.Errorf("update profile %s/%s: %w", tenantID, userID, err)
	}
	return updated, nil
}

// List returns every profile in a tenant, ordered by user id.
func (s *KVStore) List(ctx context.Context, tenantID string) ([]*Profile, error) {
	var out []*Profile
	err := s.kv.Scan(ctx, tenantPrefix(tenantID), func(key string, raw []byte) error {
		p, derr := decodeProfile(raw)
		if derr != nil {
			return fmt.Errorf("decode %s: %w", key, derr)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles for tenant %s: %w", tenantID, err)
	}
	return out, nil
}

// Delete removes a profile.
func (s *KVStore) Delete(ctx context.Context, tenantID, userID string) error {
	if err := s.kv.Delete(ctx, profileKey(tenantID, userID)); err != nil {
		return fmt.Errorf("delete profile %s/%s: %w", tenantID, userID, err)
	}
	return nil
}

// Close closes the underlying backend.
func (s *KVStore) Close() error {
	return s.kv.Close()
}

func newProfile(tenantID, userID string) *Profile {
	now := time.Now()
	return &Profile{
		UserID:    userID,
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeProfile(raw []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

var _ Store = (*KVStore)(nil)
