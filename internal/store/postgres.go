// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package store opens Threadboard's backing stores and owns the relational
// schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection check defaults used at startup.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 250 * time.Millisecond
	maxConnectBackoff      = 5 * time.Second
)

type connectOptions struct {
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
}

// ConnectOption tunes the startup connection check.
type ConnectOption func(*connectOptions)

// WithConnectRetry sets how many times the initial ping is retried and the
// base of its exponential backoff.
func WithConnectRetry(attempts uint64, base time.Duration) ConnectOption {
	return func(o *connectOptions) {
		o.attempts = attempts
		o.backoff = base
	}
}

// WithConnectLogger logs each failed connection attempt.
func WithConnectLogger(logger *slog.Logger) ConnectOption {
	return func(o *connectOptions) {
		o.logger = logger
	}
}

func newConnectOptions(opts []ConnectOption) connectOptions {
	o := connectOptions{
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// pingWithRetry calls ping until it succeeds, the attempts run out or ctx ends.
func pingWithRetry(ctx context.Context, target string, o connectOptions, ping func(context.Context) error) error {
	if o.backoff <= 0 {
		o.backoff = DefaultConnectBackoff
	}
	b := retry.WithMaxRetries(o.attempts, retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(o.backoff)))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			o.logger.WarnContext(ctx, "store not reachable yet",
				"store", target,
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// OpenPostgres creates a pgx pool for databaseURL and waits until the
// server answers a ping.
func OpenPostgres(ctx context.Context, databaseURL string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := pingWithRetry(ctx, "postgres", newConnectOptions(opts), pool.Ping); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	return pool, nil
}
