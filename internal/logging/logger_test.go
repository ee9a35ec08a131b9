// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInitRejectsBadLevel(t *testing.T) {
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestInitRejectsBadFormat(t *testing.T) {
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestComponentFieldEmitted(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer initLogger(DefaultConfig())

	log := Component("price-cache")
	log.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"price-cache"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("missing message: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "warn", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer initLogger(DefaultConfig())

	Info().Msg("dropped")
	Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info log should have been filtered: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn log missing: %s", out)
	}
}

func TestCtxCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer initLogger(DefaultConfig())

	ctx := WithCorrelationID(context.Background(), "req-123")
	if got := CorrelationID(ctx); got != "req-123" {
		t.Fatalf("CorrelationID = %q, want req-123", got)
	}

	traced := Ctx(ctx)
	traced.Info().Msg("traced")
	if !strings.Contains(buf.String(), `"correlation_id":"req-123"`) {
		t.Errorf("missing correlation_id: %s", buf.String())
	}

	// A context without an ID must not panic or add the field.
	buf.Reset()
	plain := Ctx(context.Background())
	plain.Info().Msg("plain")
	if strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("unexpected correlation_id: %s", buf.String())
	}
}
