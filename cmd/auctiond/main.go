package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/health"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"

	// Register session drivers so they are available via session.Open.
	_ "github.com/jensholdgaard/franchise-auction/internal/session/memory"
	_ "github.com/jensholdgaard/franchise-auction/internal/session/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Build the master pool once at startup. It is read-only afterwards and
	// shared across every run.
	master, rosters, err := pool.NewBuilder(logger).Build(cfg.Data)
	if err != nil {
		return fmt.Errorf("building auction pool: %w", err)
	}

	// Open the session store using the configured driver (memory or postgres).
	store, err := session.Open(ctx, cfg.Session, clk)
	if err != nil {
		return fmt.Errorf("opening session store (driver=%s): %w", cfg.Session.Driver, err)
	}
	defer store.Close()

	logger.InfoContext(ctx, "session store ready", slog.String("driver", cfg.Session.Driver))

	srv := NewServer(cfg, master, rosters, store, logger, tp.TracerProvider, tp.Metrics, clk, func() random.Source {
		return random.NewSeeded(time.Now().UnixNano())
	})

	// Setup health checks.
	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name: "session_store",
			Check: func(ctx context.Context) error {
				_, err := store.Load(ctx, "healthcheck")
				if errors.Is(err, session.ErrNotFound) {
					return nil
				}
				return err
			},
		},
	)

	mux := http.NewServeMux()
	healthHandler.Routes(mux)
	srv.Routes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down...")

	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
