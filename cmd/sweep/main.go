// Command sweep runs one expiry sweep pass against the database and prints
// the result as JSON. It is meant for cron jobs and manual maintenance when
// the API's in-process scheduler is disabled or needs a nudge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	flag "github.com/spf13/pflag"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
	"github.com/studentride/rideshare/backend/internal/service"
)

type output struct {
	domain.SweepResult
	Counts map[domain.RequestStatus]int64 `json:"counts,omitempty"`
}

func main() {
	var (
		dsn         string
		expiryHours int
		withStats   bool
		verbose     bool
	)
	flag.StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flag.IntVar(&expiryHours, "expiry-hours", 24, "expire active requests older than this many hours")
	flag.BoolVar(&withStats, "stats", false, "print request counts by status after the pass")
	flag.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flag.Parse()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(dsn, time.Duration(expiryHours)*time.Hour, withStats, logger); err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}
}

func run(dsn string, window time.Duration, withStats bool, logger *slog.Logger) error {
	if dsn == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	if window <= 0 {
		return fmt.Errorf("--expiry-hours must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	defer pool.Close()

	repos := repo.NewRepos(pool)
	res, err := service.NewSweepService(repos.Requests, window, nil, logger).Sweep(ctx)
	if err != nil {
		return err
	}

	out := output{SweepResult: res}
	if withStats {
		counts, err := service.NewStatsService(repos.Requests, repos.Votes).CleanupStats(ctx)
		if err != nil {
			return err
		}
		out.Counts = counts
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
