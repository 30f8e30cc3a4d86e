// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/threadboard/threadboard/internal/auth"
	"github.com/threadboard/threadboard/internal/auth/postgres"
	"github.com/threadboard/threadboard/internal/auth/redisstore"
	"github.com/threadboard/threadboard/internal/config"
	"github.com/threadboard/threadboard/internal/logging"
	"github.com/threadboard/threadboard/internal/mail"
	"github.com/threadboard/threadboard/internal/observability"
	"github.com/threadboard/threadboard/internal/store"
	"github.com/threadboard/threadboard/internal/web"
	"github.com/threadboard/threadboard/internal/xdg"
)

const serviceName = "threadboard"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP API server. Configuration comes from --config (YAML),
then flags; DATABASE_URL and REDIS_URL fill in unset connection URLs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(xdg.ConfigFile(configFile), cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// pinger is satisfied by *pgxpool.Pool and pgxmock pools.
type pinger interface {
	Ping(ctx context.Context) error
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	logger := logging.SetupLevel(serviceName, version, cfg.LogFormat, level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("starting threadboard",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"log_format", cfg.LogFormat,
	)

	pool, err := store.OpenPostgres(ctx, cfg.DatabaseURL, store.WithConnectLogger(logger))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	rdb, err := store.OpenRedis(ctx, store.RedisConfig{
		URL:      cfg.Redis.URL,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, store.WithConnectLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			logger.Debug("error closing redis client", "error", closeErr)
		}
	}()
	logger.Info("connected to redis")

	mailer, err := newMailer(cfg.SMTP, logger)
	if err != nil {
		return err
	}

	obsServer := observability.NewServer(cfg.MetricsAddr, readiness(pool, rdb), logger)
	metrics := obsServer.Metrics()

	svc, err := auth.NewService(auth.Deps{
		Users:       postgres.NewUserRepository(pool),
		Sessions:    redisstore.NewSessionStore(rdb, cfg.SessionTTL()),
		ResetTokens: redisstore.NewResetTokenStore(rdb, auth.ResetTokenExpiry),
		Hasher:      auth.NewArgon2idHasher(),
		Mailer:      mailer,
	},
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithResetURL(cfg.Reset.URL),
		auth.WithHashConcurrency(cfg.Hash.Concurrency),
		auth.WithMailTimeout(cfg.SMTP.Timeout),
	)
	if err != nil {
		return err
	}

	handler := web.NewHandler(svc, web.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.IsProduction(),
	}, web.WithLogger(logger), web.WithRecorder(metrics))

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	httpServer := web.NewServer(cfg.HTTPAddr, handler)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			_ = listener.Close() //nolint:errcheck // start error takes precedence
			return startErr
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("Threadboard started")
	logger.Info("http server listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...", "grace", cfg.ShutdownGrace)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		logger.Warn("reset emails still sending at shutdown", "error", err)
	}
	if cfg.MetricsAddr != "" {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// newMailer picks SMTP delivery when a relay is configured and falls back to
// logging the recipient otherwise.
func newMailer(cfg config.SMTPConfig, logger *slog.Logger) (auth.Mailer, error) {
	if cfg.Host == "" {
		logger.Warn("smtp.host not set, password reset emails will not be delivered")
		return mail.NewLogMailer(logger), nil
	}

	m, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// readiness reports ready only while both stores answer a ping.
func readiness(db pinger, rdb redis.Cmdable) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return oops.Code("NOT_READY").With("store", "postgres").Wrap(err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return oops.Code("NOT_READY").With("store", "redis").Wrap(err)
		}
		return nil
	}
}

// monitorServerErrors cancels ctx when a background server reports an error.
// It returns when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

