// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/cadence/internal/api"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/database"
	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/supervisor"
	"github.com/tomtom215/cadence/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Cadence exited with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // Sequential setup steps
func run(cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("checkpoints", cfg.Checkpoint.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Cadence with supervisor tree")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	trainer, err := initModel(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ckpt, err := initCheckpoints(ctx, cfg, trainer)
	if err != nil {
		return err
	}
	if ckpt != nil {
		defer func() {
			if err := ckpt.store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing checkpoint store")
			}
		}()
	}

	registry := detection.NewDeviceRegistry(cfg.Detection.DeviceRateLimit, cfg.Detection.DeviceRateBurst)
	engine, err := detection.NewEngine(detection.EngineConfig{
		WindowSize:     cfg.Detection.WindowSize,
		RetentionCap:   cfg.Detection.RetentionCap,
		Threshold:      cfg.Detection.Threshold,
		MaxBatchEvents: cfg.Detection.MaxBatchEvents,
	}, detection.NewDuckDBStore(db.Conn()), trainer, registry)
	if err != nil {
		return fmt.Errorf("create detection engine: %w", err)
	}

	authMW, err := initAuth(cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(engine, db, cfg, authMW, version)

	nats := initNATS(cfg, engine, handler)
	if nats != nil {
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer closeCancel()
			nats.Close(closeCtx)
		}()
	}

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)), authMW)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewSweeperService(registry, cfg.Detection.DeviceIdleTTL, cfg.Detection.SweepInterval))
	if ckpt != nil {
		tree.AddDataService(ckpt.service)
		handler.AddHealthCheck("checkpoint", ckpt.health)
	}
	if nats != nil {
		tree.AddMessagingService(services.NewComponentService("nats-ingest", nats, cfg.Server.ShutdownTimeout))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	watchConfig()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}

	var runErr error
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		runErr = fmt.Errorf("supervisor tree: %w", serveErr)
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Final database checkpoint failed")
	}
	return runErr
}
