package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "herald/internal/adapter/http"
	"herald/internal/adapter/memory"
	"herald/internal/adapter/postgres"
	"herald/internal/adapter/telegram"
	"herald/internal/adapter/usecase"
	"herald/internal/config"
	"herald/internal/core/port"
	"herald/internal/db"
)

// main is the entry point of the herald service. It loads configuration,
// optionally runs database migrations, initializes the record store, wires
// the dispatch core and starts the HTTP server alongside the dispatcher.
// On receiving a termination signal it gracefully shuts both down.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Local runs keep their settings in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store port.Store
	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory store")
		store = memory.New()
	default:
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				logger.Error("migration error", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("migrations applied successfully")
		}

		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			logger.Error("database connection error", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Psql.SeedDemoData {
			if err = db.Seed(ctx, pool); err != nil {
				logger.Error("seed error", slog.Any("error", err))
			} else {
				logger.Info("demo data seeded")
			}
		}
		store = postgres.NewStore(pool)
	}

	var transport port.Transport
	if cfg.Telegram.Enabled {
		transport = telegram.New(telegram.Options{APIURL: cfg.Telegram.APIURL}, logger)
	} else {
		logger.Info("telegram delivery disabled, sends are logged only")
		transport = telegram.NewDryRun(logger)
	}

	limiter := usecase.NewRateLimiter(cfg.Rate.Window, cfg.Rate.SendsPerWindow, store.Bots(), logger)
	queue := usecase.NewClaimQueue(store, limiter, logger)
	stats := usecase.NewAggregator(store.Deliveries(), cfg.Dispatch.ReclaimAfter)
	admin := usecase.NewAdmin(store, stats, logger)

	dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
		Workers:       cfg.Dispatch.Workers,
		SendTimeout:   cfg.Dispatch.SendTimeout,
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		BackoffMin:    cfg.Dispatch.BackoffMin,
		BackoffMax:    cfg.Dispatch.BackoffMax,
		ReclaimAfter:  cfg.Dispatch.ReclaimAfter,
		SweepInterval: cfg.Dispatch.SweepInterval,
		GlobalRate:    cfg.Dispatch.GlobalRate,
	}, store, queue, transport, logger)

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		_ = dispatcher.Run(ctx)
	}()

	handler := httpadapter.NewHandler(admin, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	// Stop claiming new work, then drain the server and the workers.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
	<-dispatchDone
}
