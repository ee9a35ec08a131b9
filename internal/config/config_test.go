// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Market.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %v, want 30s", cfg.Market.PollInterval)
	}
	if cfg.Market.StaleAfter != 60*time.Second {
		t.Errorf("stale after = %v, want 60s", cfg.Market.StaleAfter)
	}
	w := cfg.Recommend.Weights
	if w.Collaborative != 0.3 || w.ContentBased != 0.4 || w.Behavioral != 0.2 || w.Trending != 0.1 {
		t.Errorf("unexpected default weights: %+v", w)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  port: 9191\nmarket:\n  poll_interval: 5s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Market.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v, want 5s", cfg.Market.PollInterval)
	}
	// Untouched keys keep defaults.
	if cfg.Recommend.DefaultCount != 10 {
		t.Errorf("default_count = %d, want 10", cfg.Recommend.DefaultCount)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("COINSCOPE_SERVER__PORT", "7070")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from env", cfg.Server.Port)
	}
}

func TestValidateRejectsBadFeedBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.Market.FeedBackend = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown feed backend")
	}
}

func TestValidateRejectsWebsocketWithoutURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Market.FeedBackend = "websocket"
	cfg.Market.WebsocketURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for websocket backend without URL")
	}
}

func TestValidateRejectsZeroWeights(t *testing.T) {
	cfg := defaultConfig()
	cfg.Recommend.Weights = WeightsConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for all-zero weights")
	}
}
