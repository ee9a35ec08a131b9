// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package market

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedBrokerConfig configures the in-process NATS server used by
// standalone deployments of the nats feed backend.
type EmbeddedBrokerConfig struct {
	Host string
	Port int

	// ReadyTimeout bounds the wait for the server to accept connections.
	ReadyTimeout time.Duration
}

// EmbeddedBroker runs a NATS server inside the process so single-instance
// deployments need no external broker. Tick delivery uses core NATS; the
// polling fallback covers anything missed, so JetStream stays off.
type EmbeddedBroker struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedBroker creates and starts the embedded server.
func StartEmbeddedBroker(cfg EmbeddedBrokerConfig) (*EmbeddedBroker, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 4222
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: "coinscope-ticks",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  false,
		NoLog:      true,
		MaxPayload: 1 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded broker: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(cfg.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded broker not ready within %s", cfg.ReadyTimeout)
	}

	return &EmbeddedBroker{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for feed clients.
func (b *EmbeddedBroker) ClientURL() string { return b.clientURL }

// Running reports broker health.
func (b *EmbeddedBroker) Running() bool { return b.server.Running() }

// Shutdown stops the broker, waiting for completion unless the context
// ends first.
func (b *EmbeddedBroker) Shutdown(ctx context.Context) error {
	b.server.Shutdown()

	done := make(chan struct{})
	go func() {
		b.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
