// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/coinscope/coinscope/internal/alerts"
)

// SMTPConfig configures the email channel.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// RecipientResolver maps a user to their notification email address. The
// account service owns addresses; this keeps the channel decoupled from it.
type RecipientResolver func(tenantID, userID string) (string, error)

// sendFunc matches smtp.SendMail, swappable in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel delivers alert notifications over SMTP.
type EmailChannel struct {
	cfg     SMTPConfig
	resolve RecipientResolver
	send    sendFunc
}

// NewEmailChannel creates the email channel.
func NewEmailChannel(cfg SMTPConfig, resolve RecipientResolver) *EmailChannel {
	return &EmailChannel{cfg: cfg, resolve: resolve, send: smtp.SendMail}
}

// Name implements Channel.
func (c *EmailChannel) Name() alerts.NotificationMethod { return alerts.MethodEmail }

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, n alerts.Notification) *Result {
	if c.cfg.Host == "" || c.cfg.From == "" {
		return failureResult(c.Name(), fmt.Errorf("smtp not configured"))
	}
	if c.resolve == nil {
		return failureResult(c.Name(), fmt.Errorf("no recipient resolver configured"))
	}

	to, err := c.resolve(n.Alert.TenantID, n.Alert.UserID)
	if err != nil {
		return failureResult(c.Name(), fmt.Errorf("resolve recipient: %w", err))
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	msg := c.buildMessage(to, n)
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	if err := c.send(addr, auth, c.cfg.From, []string{to}, []byte(msg)); err != nil {
		return failureResult(c.Name(), fmt.Errorf("smtp send: %w", err))
	}
	return successResult(c.Name())
}

func (c *EmailChannel) buildMessage(to string, n alerts.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Coinscope Alerts <%s>\r\n", c.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Price alert: %s\r\n", n.Alert.Symbol)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")
	return b.String()
}

var _ Channel = (*EmailChannel)(nil)
