// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadboard/threadboard/internal/auth"
	"github.com/threadboard/threadboard/pkg/errutil"
)

func noEnv(string) string { return "" }

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threadboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil, noEnv)
	require.NoError(t, err)

	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, ":4000", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultShutdownGrace, cfg.ShutdownGrace)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "qid", cfg.Session.CookieName)
	assert.Equal(t, 87600*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, auth.DefaultResetURL, cfg.Reset.URL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Equal(t, auth.DefaultMailTimeout, cfg.SMTP.Timeout)
	assert.Zero(t, cfg.Hash.Concurrency)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
env: production
http-addr: ":8080"
database-url: postgres://file/tb
redis:
  addr: redis:6379
  db: 3
session:
  cookie-name: tb_sid
  max-age: 720h
  ttl: 24h
smtp:
  host: smtp.example.com
  from: noreply@example.com
hash:
  concurrency: 4
`)
	cfg, err := Load(path, flags(t), noEnv)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres://file/tb", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "tb_sid", cfg.Session.CookieName)
	assert.Equal(t, 720*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port, "unset keys keep their defaults")
	assert.Equal(t, 4, cfg.Hash.Concurrency)
}

func TestLoad_ExplicitFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "http-addr: \":8080\"\nlog-format: text\n")

	cfg, err := Load(path, flags(t, "--http-addr=:9090", "--session.cookie-name=sid"), noEnv)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "text", cfg.LogFormat, "file value kept when flag not set")
	assert.Equal(t, "sid", cfg.Session.CookieName)
}

func TestLoad_EnvironmentFallback(t *testing.T) {
	vars := env(map[string]string{
		"DATABASE_URL": "postgres://env/tb",
		"REDIS_URL":    "redis://env:6379/0",
	})

	cfg, err := Load("", nil, vars)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/tb", cfg.DatabaseURL)
	assert.Equal(t, "redis://env:6379/0", cfg.Redis.URL)

	cfg, err = Load("", flags(t, "--database-url=postgres://flag/tb"), vars)
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/tb", cfg.DatabaseURL, "configured value wins over the environment")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")

	_, err = Load(writeFile(t, "http-addr: [unterminated"), nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")

	_, err = Load(writeFile(t, "session:\n  max-age: forever\n"), nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("", flags(t, "--database-url=postgres://localhost/tb"), noEnv)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log-level"},
		{"no http addr", func(c *Config) { c.HTTPAddr = "" }, "http-addr"},
		{"no database", func(c *Config) { c.DatabaseURL = "" }, "database-url"},
		{"no redis", func(c *Config) { c.Redis.Addr = ""; c.Redis.URL = "" }, "redis"},
		{"no cookie name", func(c *Config) { c.Session.CookieName = "" }, "cookie-name"},
		{"zero max age", func(c *Config) { c.Session.MaxAge = 0 }, "max-age"},
		{"negative ttl", func(c *Config) { c.Session.TTL = -time.Second }, "session.ttl"},
		{"smtp without port", func(c *Config) { c.SMTP.Host = "smtp"; c.SMTP.Port = 0 }, "smtp.port"},
		{"negative hash concurrency", func(c *Config) { c.Hash.Concurrency = -1 }, "hash.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestConfig_SessionTTLFollowsMaxAge(t *testing.T) {
	cfg := validConfig(t)
	assert.Equal(t, cfg.Session.MaxAge, cfg.SessionTTL())

	cfg.Session.TTL = time.Hour
	assert.Equal(t, time.Hour, cfg.SessionTTL())
}

func TestConfig_Level(t *testing.T) {
	cfg := validConfig(t)

	cfg.LogLevel = "DEBUG"
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	cfg.LogLevel = "warn"
	level, err = cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
