// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package services

import (
	"context"

	"github.com/coinscope/coinscope/internal/alerts"
)

// MonitorService runs the alert monitor under supervision. The monitor owns
// its own goroutines; this wrapper only ties its lifetime to the tree.
type MonitorService struct {
	monitor *alerts.Monitor
}

// NewMonitorService wraps the monitor.
func NewMonitorService(monitor *alerts.Monitor) *MonitorService {
	return &MonitorService{monitor: monitor}
}

// Serve implements suture.Service.
func (s *MonitorService) Serve(ctx context.Context) error {
	if err := s.monitor.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.monitor.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *MonitorService) String() string { return "alert-monitor" }
