// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package api

import (
	"context"
	"net/http"
)

// Identity headers. The gateway in front of this service authenticates the
// caller and forwards the resolved identity; tenancy defaults to the single
// shared tenant when the header is absent.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"

	// DefaultTenant is used when no tenant header is present.
	DefaultTenant = "default"
)

// identity is the caller identity attached to the request context.
type identity struct {
	TenantID string
	UserID   string
}

type identityKey struct{}

// identityFromContext returns the caller identity, or a zero identity.
func identityFromContext(ctx context.Context) identity {
	if id, ok := ctx.Value(identityKey{}).(identity); ok {
		return id
	}
	return identity{}
}

// Identity extracts the forwarded identity headers into the request context.
// UserID may be empty; handlers that need one reject the request themselves.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity{
				TenantID: r.Header.Get(HeaderTenantID),
				UserID:   r.Header.Get(HeaderUserID),
			}
			if id.TenantID == "" {
				id.TenantID = DefaultTenant
			}
			ctx := context.WithValue(r.Context(), identityKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireUser returns the caller identity, writing a 401 when no user id was
// forwarded. The boolean reports whether the handler may proceed.
func requireUser(rw *ResponseWriter, r *http.Request) (identity, bool) {
	id := identityFromContext(r.Context())
	if id.UserID == "" {
		rw.Unauthorized("missing " + HeaderUserID + " header")
		return identity{}, false
	}
	return id, true
}
