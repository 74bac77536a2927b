// Package main is the entry point for the rideshare API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studentride/rideshare/backend/internal/auth"
	"github.com/studentride/rideshare/backend/internal/config"
	"github.com/studentride/rideshare/backend/internal/handler"
	"github.com/studentride/rideshare/backend/internal/lock"
	"github.com/studentride/rideshare/backend/internal/metrics"
	"github.com/studentride/rideshare/backend/internal/middleware"
	"github.com/studentride/rideshare/backend/internal/repo"
	"github.com/studentride/rideshare/backend/internal/scheduler"
	"github.com/studentride/rideshare/backend/internal/service"
	"github.com/studentride/rideshare/backend/migrations"
	"github.com/studentride/rideshare/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		// goose drives database/sql; OpenDBFromPool shares the pool's connections.
		sqlDB := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", n)
	}

	// --- Services ---------------------------------------------------------
	mtx := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	store := repo.NewStore(pool)
	reads := repo.NewRepos(pool)
	engine := service.NewOccupancyEngine(store, cfg.ReopenOnWithdraw)

	requestSvc := service.NewRequestService(store, reads, engine, logger)
	voteSvc := service.NewVoteService(store, reads, engine, cfg.AllowSelfVote, mtx, logger)
	userSvc := service.NewUserService(store, reads, engine, logger)
	statsSvc := service.NewStatsService(reads.Requests, reads.Votes)
	sweepSvc := service.NewSweepService(reads.Requests, cfg.ExpiryWindow, mtx, logger)

	// --- Scheduler --------------------------------------------------------
	opts := []scheduler.Option{scheduler.WithSkipRecorder(mtx)}
	if cfg.RedisURL != "" {
		client, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		// The holder renews the lease; the TTL only bounds a crashed holder.
		opts = append(opts, scheduler.WithLocker(lock.NewRedisLease(client, lock.DefaultKey, cfg.SweepLeaseTTL)))
		slog.Info("sweep lease enabled", "key", lock.DefaultKey, "ttl", cfg.SweepLeaseTTL.String())
	}
	sched := scheduler.New(sweepSvc, cfg.CleanupInterval, logger, opts...)
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Metrics →
	// Recoverer → CORS → MaxBodySize.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(mtx.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", mtx.Handler())
	r.Handle("/openapi.yaml", spec.Handler())

	srv := handler.NewServer(handler.Services{
		Requests: requestSvc,
		Votes:    voteSvc,
		Users:    userSvc,
		Stats:    statsSvc,
		Sweeps:   sched,
	}, logger)
	r.Mount("/", handler.Routes(srv, auth.Middleware(auth.NewVerifier(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Graceful shutdown: give in-flight requests up to 15 seconds, then let
	// any running sweep finish before the pool closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	sched.Stop()
	slog.Info("server stopped")
}
