// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package store

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisConfig addresses the key-value store holding sessions and reset
// tokens. URL, when set, takes precedence over the discrete fields.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, oops.Code("REDIS_CONFIG_INVALID").With("operation", "parse redis url").Wrap(err)
		}
		return opts, nil
	}
	if c.Addr == "" {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Errorf("redis address is required")
	}
	return &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}, nil
}

// OpenRedis creates a client for cfg and waits until the server answers PING.
func OpenRedis(ctx context.Context, cfg RedisConfig, opts ...ConnectOption) (*redis.Client, error) {
	redisOpts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }

	if err := pingWithRetry(ctx, "redis", newConnectOptions(opts), ping); err != nil {
		_ = client.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("operation", "ping redis").
			With("addr", redisOpts.Addr).
			Wrap(err)
	}

	return client, nil
}
