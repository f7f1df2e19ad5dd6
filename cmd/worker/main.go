package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billserver/internal/infra"
	"billserver/internal/quota"
	"billserver/internal/sqlinline"
)

// The worker downgrades lapsed paid subscriptions back to the free tier.
// Expiry is day-granular, so the sweep interval only bounds how stale a
// lapsed account can be, not correctness.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	clock := quota.SystemClock()

	logger.Info().Dur("interval", cfg.SweepInterval).Msg("worker: started")

	sweep(ctx, runner, clock, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker: stopped")
			return
		case <-ticker.C:
			sweep(ctx, runner, clock, logger)
		}
	}
}

func sweep(ctx context.Context, runner *infra.SQLRunner, clock quota.Clock, logger infra.Logger) {
	today := clock.TodayOrdinal()
	tag, err := runner.Exec(ctx, sqlinline.QExpireLapsedSubscriptions, today)
	if err != nil {
		logger.Error().Err(err).Msg("worker: expiry sweep failed")
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		logger.Info().Int64("downgraded", n).Msg("worker: lapsed subscriptions downgraded")
	}
}
