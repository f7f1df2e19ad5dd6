package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"billserver/internal/domain"
	"billserver/internal/infra"
	"billserver/internal/quota"
	"billserver/internal/sqlinline"
)

// quotactl is the operator CLI for quota records: inspect a user, force a
// tier change, or zero out usage counters after support escalations.
func main() {
	var (
		idFlag        string
		tierFlag      string
		resetFlag     bool
		watermarkFlag bool
		retentionFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to operate on")
	flag.StringVar(&tierFlag, "tier", "", "tier to assign (free, basic, pro, enterprise)")
	flag.BoolVar(&resetFlag, "reset-usage", false, "zero daily and monthly usage counters")
	flag.BoolVar(&watermarkFlag, "watermark", false, "watermark flag to set alongside -tier")
	flag.IntVar(&retentionFlag, "retention-days", 0, "retention days to set alongside -tier (0 keeps tier default)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "quotactl").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	clock := quota.SystemClock()

	if tierFlag != "" {
		tier := domain.Tier(strings.ToLower(strings.TrimSpace(tierFlag)))
		if !tier.Valid() {
			exitWithError(fmt.Errorf("unsupported tier %q", tierFlag))
		}
		retention := retentionFlag
		if retention <= 0 {
			retention = 30
			if tier.IsPaid() {
				retention = 365
			}
		}
		freeExpiry := 0
		if tier == domain.TierFree {
			freeExpiry = clock.TodayOrdinal() + 365
		}
		row := runner.QueryRow(ctx, sqlinline.QUpdateUserTier, userID, string(tier), watermarkFlag, retention, freeExpiry)
		var gotID, gotTier string
		var gotWatermark bool
		var gotRetention int
		if err := row.Scan(&gotID, &gotTier, &gotWatermark, &gotRetention); err != nil {
			exitWithError(fmt.Errorf("failed to update tier: %w", err))
		}
		fmt.Printf("User %s set to tier %s (watermark=%v retention_days=%d)\n", gotID, gotTier, gotWatermark, gotRetention)
	}

	if resetFlag {
		row := runner.QueryRow(ctx, sqlinline.QResetQuotaUsage, userID, clock.TodayOrdinal(), clock.MonthStartOrdinal())
		var gotID string
		var daily, monthly int
		if err := row.Scan(&gotID, &daily, &monthly); err != nil {
			exitWithError(fmt.Errorf("failed to reset usage: %w", err))
		}
		fmt.Printf("User %s usage reset (daily_used=%d monthly_used=%d)\n", gotID, daily, monthly)
	}

	row := runner.QueryRow(ctx, sqlinline.QSelectUserQuota, userID)
	var q domain.UserQuota
	if err := row.Scan(
		&q.UserID, &q.Tier, &q.DailyUsed, &q.LastResetDay,
		&q.MonthlyUsed, &q.LastMonthlyResetDay,
		&q.Watermark, &q.RetentionDays, &q.FreeExpiryDay, &q.DeviceTier,
		&q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		exitWithError(fmt.Errorf("failed to load quota record: %w", err))
	}

	fmt.Printf("user_id=%s tier=%s\n", q.UserID, q.Tier)
	fmt.Printf("daily_used=%d (last_reset_day=%d) monthly_used=%d (last_monthly_reset_day=%d)\n",
		q.DailyUsed, q.LastResetDay, q.MonthlyUsed, q.LastMonthlyResetDay)
	fmt.Printf("watermark=%v retention_days=%d free_expiry_day=%d device_tier=%s\n",
		q.Watermark, q.RetentionDays, q.FreeExpiryDay, q.DeviceTier)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
