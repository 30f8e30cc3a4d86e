// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package mail delivers outbound Threadboard email.
package mail

import (
	"context"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/samber/oops"

	"github.com/threadboard/threadboard/internal/auth"
)

// ResetSubject is the subject line of password reset emails.
const ResetSubject = "Change Password"

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc delivers a built message. Replaced in tests.
type sendFunc func(addr string, a smtp.Auth, e *email.Email) error

// SMTPMailer sends HTML email through an SMTP relay.
type SMTPMailer struct {
	cfg  Config
	send sendFunc
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("port", cfg.Port).Errorf("smtp port must be positive")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("smtp from address is required")
	}
	return &SMTPMailer{
		cfg:  cfg,
		send: func(addr string, a smtp.Auth, e *email.Email) error { return e.Send(addr, a) },
	}, nil
}

// Send delivers htmlBody to a single recipient. It returns when the relay
// answers or ctx is done, whichever comes first. An abandoned exchange keeps
// running in the background until the connection gives up.
func (m *SMTPMailer) Send(ctx context.Context, to, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", to).Wrap(err)
	}

	e := m.message(to, htmlBody)
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr(), m.auth(), e)
	}()

	select {
	case err := <-done:
		if err != nil {
			return oops.Code("MAIL_SEND_FAILED").
				With("to", to).
				With("host", m.cfg.Host).
				Wrap(err)
		}
		return nil
	case <-ctx.Done():
		return oops.Code("MAIL_SEND_FAILED").
			With("to", to).
			With("host", m.cfg.Host).
			With("operation", "wait for relay").
			Wrap(ctx.Err())
	}
}

func (m *SMTPMailer) message(to, htmlBody string) *email.Email {
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = ResetSubject
	e.HTML = []byte(htmlBody)
	return e
}

func (m *SMTPMailer) addr() string {
	return net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
}

// auth returns nil for relays that accept unauthenticated submission.
func (m *SMTPMailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

// LogMailer stands in for SMTP when no relay is configured. It records that
// a message was dropped without logging its body, which carries secrets.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the recipient and discards the message.
func (m *LogMailer) Send(ctx context.Context, to, htmlBody string) error {
	m.logger.WarnContext(ctx, "smtp not configured, email dropped",
		"to", to,
		"subject", ResetSubject,
		"bytes", len(htmlBody))
	return nil
}

var (
	_ auth.Mailer = (*SMTPMailer)(nil)
	_ auth.Mailer = (*LogMailer)(nil)
)
