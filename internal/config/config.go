// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package config loads Threadboard's process configuration.
//
// Values are layered: flag defaults, then the optional YAML file, then flags
// set explicitly on the command line. DATABASE_URL and REDIS_URL fill the
// matching keys when nothing else set them.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/threadboard/threadboard/internal/auth"
)

// EnvProduction marks a production deployment; it turns on secure cookies.
const EnvProduction = "production"

// Defaults.
const (
	DefaultEnv           = "development"
	DefaultHTTPAddr      = ":4000"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultRedisAddr     = "localhost:6379"
	DefaultCookieName    = "qid"
	DefaultCookieMaxAge  = 10 * 365 * 24 * time.Hour
	DefaultSMTPPort      = 587
	DefaultShutdownGrace = 10 * time.Second
)

// Config is the complete process configuration.
type Config struct {
	Env           string        `koanf:"env"`
	HTTPAddr      string        `koanf:"http-addr"`
	MetricsAddr   string        `koanf:"metrics-addr"`
	LogFormat     string        `koanf:"log-format"`
	LogLevel      string        `koanf:"log-level"`
	DatabaseURL   string        `koanf:"database-url"`
	ShutdownGrace time.Duration `koanf:"shutdown-grace"`

	Redis   RedisConfig   `koanf:"redis"`
	Session SessionConfig `koanf:"session"`
	Reset   ResetConfig   `koanf:"reset"`
	SMTP    SMTPConfig    `koanf:"smtp"`
	Hash    HashConfig    `koanf:"hash"`
}

// RedisConfig locates the session and reset token store.
type RedisConfig struct {
	URL      string `koanf:"url"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// SessionConfig controls the session cookie and its server-side lifetime.
type SessionConfig struct {
	CookieName string        `koanf:"cookie-name"`
	MaxAge     time.Duration `koanf:"max-age"`
	TTL        time.Duration `koanf:"ttl"`
}

// ResetConfig controls password reset links.
type ResetConfig struct {
	URL string `koanf:"url"`
}

// SMTPConfig addresses the outbound mail relay. An empty host disables
// delivery.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`

	// Timeout bounds one reset email send.
	Timeout time.Duration `koanf:"timeout"`
}

// HashConfig bounds password hashing work.
type HashConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// RegisterFlags declares every configuration key on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", DefaultEnv, "deployment environment (production enables secure cookies)")
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health listen address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "minimum log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.Duration("shutdown-grace", DefaultShutdownGrace, "time allowed for in-flight requests on shutdown")

	fs.String("redis.url", "", "Redis URL, overrides redis.addr (default: $REDIS_URL)")
	fs.String("redis.addr", DefaultRedisAddr, "Redis address")
	fs.String("redis.password", "", "Redis password")
	fs.Int("redis.db", 0, "Redis database number")

	fs.String("session.cookie-name", DefaultCookieName, "session cookie name")
	fs.Duration("session.max-age", DefaultCookieMaxAge, "session cookie max age")
	fs.Duration("session.ttl", 0, "server-side session lifetime (0 = session.max-age)")

	fs.String("reset.url", auth.DefaultResetURL, "link prefix for password reset emails")

	fs.String("smtp.host", "", "SMTP relay host (empty = log instead of sending)")
	fs.Int("smtp.port", DefaultSMTPPort, "SMTP relay port")
	fs.String("smtp.username", "", "SMTP username")
	fs.String("smtp.password", "", "SMTP password")
	fs.String("smtp.from", "", "sender address (default: smtp.username)")
	fs.Duration("smtp.timeout", auth.DefaultMailTimeout, "time allowed for one reset email send")

	fs.Int("hash.concurrency", 0, "concurrent password hashes (0 = GOMAXPROCS)")
}

// Load builds a Config from the YAML file at path (optional) and fs.
// A nil fs loads defaults only. getenv defaults to os.Getenv.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if fs == nil {
		fs = pflag.NewFlagSet("threadboard", pflag.ContinueOnError)
		RegisterFlags(fs)
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// Changed flags override the file; defaults only fill missing keys.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode configuration").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getenv("DATABASE_URL")
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = getenv("REDIS_URL")
	}

	return &cfg, nil
}

// Validate checks the values a server cannot start without.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url or DATABASE_URL is required")
	}
	if c.Redis.URL == "" && c.Redis.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("redis.url or redis.addr is required")
	}
	if c.Session.CookieName == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.cookie-name is required")
	}
	if c.Session.MaxAge <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.max-age must be positive, got %s", c.Session.MaxAge)
	}
	if c.Session.TTL < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must not be negative, got %s", c.Session.TTL)
	}
	if c.SMTP.Host != "" && c.SMTP.Port <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("smtp.port must be positive, got %d", c.SMTP.Port)
	}
	if c.Hash.Concurrency < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("hash.concurrency must not be negative, got %d", c.Hash.Concurrency)
	}
	return nil
}

// IsProduction reports whether secure cookies are required.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SessionTTL is how long the store keeps a session. It follows the cookie
// max age unless set explicitly.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTL > 0 {
		return c.Session.TTL
	}
	return c.Session.MaxAge
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, oops.Code("CONFIG_INVALID").Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return level, nil
}
