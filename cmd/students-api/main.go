// main is the entry point of the Students API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (env vars override it)
//  2. Initialise the logger
//  3. Open the configured database and apply migrations
//  4. Build the service, metrics and chi router
//  5. Serve HTTP until SIGINT or SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/postgres.yaml go run ./cmd/students-api
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelcruzl/students-api/internal/config"
	httpapi "github.com/angelcruzl/students-api/internal/http"
	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/angelcruzl/students-api/internal/metrics"
	"github.com/angelcruzl/students-api/internal/service"
	"github.com/angelcruzl/students-api/internal/storage"
	"github.com/angelcruzl/students-api/internal/storage/postgres"
	"github.com/angelcruzl/students-api/internal/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const version = "1.0.0"

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	if err := run(cfg, log); err != nil {
		log.Error("students-api stopped", logger.Err(err))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close storage", logger.Err(err))
		}
	}()

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	deps := httpapi.RouterDeps{Logger: log}

	// A nil *Collector must not reach the service as a non-nil interface.
	var rejections service.RejectionRecorder
	if cfg.Metrics.Enabled() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector := metrics.NewCollector(reg)

		rejections = collector
		deps.Metrics = collector
		deps.MetricsPath = cfg.Metrics.Path
		deps.MetricsHandler = metrics.Handler(reg)
	}
	deps.Students = service.NewStudentService(store, rejections)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      httpapi.NewRouter(deps),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// openStorage picks the backend named by storage.driver. Both constructors
// apply pending migrations before returning.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Storage.Driver)
	}
}
