package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"billserver/internal/domain"
	"billserver/internal/infra"
	"billserver/internal/sqlinline"
)

// QuotaRepositoryPG is the PostgreSQL quota store behind the gate.
type QuotaRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewQuotaRepository creates a new QuotaRepositoryPG.
func NewQuotaRepository(sql infra.SQLExecutor) *QuotaRepositoryPG {
	return &QuotaRepositoryPG{sql: sql}
}

// Get fetches the quota record for a user. Returns domain.ErrNotFound when
// the user has never been provisioned.
func (r *QuotaRepositoryPG) Get(ctx context.Context, userID string) (*domain.UserQuota, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserQuota, userID)
	var q domain.UserQuota
	err := row.Scan(
		&q.UserID, &q.Tier, &q.DailyUsed, &q.LastResetDay,
		&q.MonthlyUsed, &q.LastMonthlyResetDay,
		&q.Watermark, &q.RetentionDays, &q.FreeExpiryDay, &q.DeviceTier,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user quota: %w", err)
	}
	return &q, nil
}

// Put upserts the quota record. Tier and provisioning-time fields only change
// on insert; rollover updates touch the counters and reset days.
func (r *QuotaRepositoryPG) Put(ctx context.Context, rec *domain.UserQuota) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertUserQuota,
		rec.UserID, string(rec.Tier),
		rec.DailyUsed, rec.LastResetDay,
		rec.MonthlyUsed, rec.LastMonthlyResetDay,
		rec.Watermark, rec.RetentionDays, rec.FreeExpiryDay, string(rec.DeviceTier),
	)
	if err != nil {
		return fmt.Errorf("upsert user quota: %w", err)
	}
	return nil
}

// IncrementUsage adds one to both usage counters in a single statement.
func (r *QuotaRepositoryPG) IncrementUsage(ctx context.Context, userID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QIncrementQuotaUsage, userID)
	if err != nil {
		return fmt.Errorf("increment quota usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetTier applies an external tier change (payment success, expiry sweep).
// The gate itself never calls this.
func (r *QuotaRepositoryPG) SetTier(ctx context.Context, userID string, tier domain.Tier, watermark bool, retentionDays, freeExpiryDay int) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateUserTier, userID, string(tier), watermark, retentionDays, freeExpiryDay)
	var id, gotTier string
	var gotWatermark bool
	var gotRetention int
	if err := row.Scan(&id, &gotTier, &gotWatermark, &gotRetention); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update user tier: %w", err)
	}
	return nil
}
