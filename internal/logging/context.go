// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// correlationKey is the context key for correlation IDs.
type correlationKey struct{}

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID extracts the correlation ID from the context, or "" if unset.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the context's correlation ID.
func Ctx(ctx context.Context) zerolog.Logger {
	if id := CorrelationID(ctx); id != "" {
		return Get().With().Str("correlation_id", id).Logger()
	}
	return Get()
}
