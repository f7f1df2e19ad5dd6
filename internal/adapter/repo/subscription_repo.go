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

// SubscriptionRepositoryPG implements domain.SubscriptionRepository backed by PostgreSQL.
type SubscriptionRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewSubscriptionRepository creates a new SubscriptionRepositoryPG.
func NewSubscriptionRepository(sql infra.SQLExecutor) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{sql: sql}
}

func (r *SubscriptionRepositoryPG) Upsert(ctx context.Context, sub *domain.Subscription) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertSubscription,
		sub.UserID, string(sub.Tier), string(sub.Status), sub.PeriodEndDay, sub.PaymentRef,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryPG) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectSubscription, userID)
	var sub domain.Subscription
	err := row.Scan(&sub.UserID, &sub.Tier, &sub.Status, &sub.PeriodEndDay, &sub.PaymentRef, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select subscription: %w", err)
	}
	return &sub, nil
}
