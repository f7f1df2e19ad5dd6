package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"billserver/internal/domain"
)

// Provisioning defaults for new free-tier accounts.
const (
	freeEntitlementDays    = 365
	retentionDaysDefault   = 30
	retentionDaysPromo     = 60
	fallbackFreeMonthlyCap = 60
)

// Store is the durable per-user quota record the gate operates on. Get must
// return domain.ErrNotFound for users that have never been provisioned. Put
// is an upsert so re-provisioning after a race is harmless. IncrementUsage
// adds one to both usage counters.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.UserQuota, error)
	Put(ctx context.Context, rec *domain.UserQuota) error
	IncrementUsage(ctx context.Context, userID string) error
}

// Gate decides whether a user may create one more invoice right now. A
// single mutex serializes evaluations; the app serves one foreground session
// so per-user locking buys nothing.
type Gate struct {
	mu      sync.Mutex
	store   Store
	clock   Clock
	policy  PolicySource
	devices DeviceClassifier
	logger  zerolog.Logger
}

// NewGate wires the gate to its collaborators.
func NewGate(store Store, clock Clock, policy PolicySource, devices DeviceClassifier, logger zerolog.Logger) *Gate {
	return &Gate{
		store:   store,
		clock:   clock,
		policy:  policy,
		devices: devices,
		logger:  logger.With().Str("component", "quota_gate").Logger(),
	}
}

// Evaluate decides whether userID may create one more invoice. With consume
// set, an Allowed verdict also spends one unit of today's allowance; without
// it the call is a side-effect-free probe (rollover and provisioning writes
// aside, which are idempotent repairs, not usage).
func (g *Gate) Evaluate(ctx context.Context, userID string, consume bool) (Verdict, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	pol, err := g.policy.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota: load policy: %w", err)
	}

	// Kill switch wins over everything and must not touch stored state.
	if pol.KillSwitch {
		g.logger.Warn().Str("user_id", userID).Msg("evaluation blocked by kill switch")
		return Killed{}, nil
	}

	today := g.clock.TodayOrdinal()
	monthStart := g.clock.MonthStartOrdinal()

	rec, err := g.settled(ctx, userID, pol, today, monthStart)
	if err != nil {
		return nil, err
	}

	if rec.FreeExpiryDay != 0 && today > rec.FreeExpiryDay {
		return FreeExpired{}, nil
	}

	limit := pol.DailyLimit(rec.Tier) + pol.launchBonus(rec.Tier, today)
	if rec.DailyUsed >= limit {
		return DailyCapReached{Limit: limit, ResetAt: g.clock.NextMidnight()}, nil
	}

	monthlyCap := pol.FreeMonthlyCap
	if monthlyCap <= 0 {
		monthlyCap = fallbackFreeMonthlyCap
	}
	if rec.Tier == domain.TierFree && rec.MonthlyUsed >= monthlyCap {
		return MonthlyCapReached{}, nil
	}

	remaining := limit - rec.DailyUsed - 1
	if consume {
		if err := g.store.IncrementUsage(ctx, userID); err != nil {
			return nil, fmt.Errorf("quota: record usage: %w", err)
		}
		g.logger.Debug().
			Str("user_id", userID).
			Int("daily_used", rec.DailyUsed+1).
			Int("remaining", remaining).
			Msg("quota consumed")
	}
	return Allowed{Remaining: remaining}, nil
}

// settled loads the quota record and repeatedly applies pending repairs
// (first-time provisioning, daily rollover, monthly rollover) until the
// record is current for today. Each repair persists then re-reads, so the
// decision pass always observes a fully rolled-over record. At most three
// repairs can be pending, which bounds the loop.
func (g *Gate) settled(ctx context.Context, userID string, pol Policy, today, monthStart int) (*domain.UserQuota, error) {
	for attempt := 0; attempt < 4; attempt++ {
		rec, err := g.store.Get(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			if err := g.store.Put(ctx, g.provision(ctx, userID, pol, today, monthStart)); err != nil {
				return nil, fmt.Errorf("quota: provision %s: %w", userID, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("quota: load record %s: %w", userID, err)
		}

		if rec.LastResetDay != today {
			rec.DailyUsed = 0
			rec.LastResetDay = today
			if err := g.store.Put(ctx, rec); err != nil {
				return nil, fmt.Errorf("quota: daily rollover %s: %w", userID, err)
			}
			continue
		}
		if rec.LastMonthlyResetDay != monthStart {
			rec.MonthlyUsed = 0
			rec.LastMonthlyResetDay = monthStart
			if err := g.store.Put(ctx, rec); err != nil {
				return nil, fmt.Errorf("quota: monthly rollover %s: %w", userID, err)
			}
			continue
		}
		return rec, nil
	}
	return nil, fmt.Errorf("quota: record for %s did not settle", userID)
}

// provision builds the record for a first-seen user. Everyone starts on the
// free tier regardless of device class; the device tier is recorded for
// analytics only.
func (g *Gate) provision(ctx context.Context, userID string, pol Policy, today, monthStart int) *domain.UserQuota {
	retention := retentionDaysDefault
	if pol.InPromo(today) {
		retention = retentionDaysPromo
	}
	deviceTier := domain.DeviceTierMidRange
	if g.devices != nil {
		deviceTier = g.devices.Classify(ctx)
	}
	g.logger.Info().
		Str("user_id", userID).
		Str("device_tier", string(deviceTier)).
		Int("retention_days", retention).
		Msg("provisioning free quota")
	return &domain.UserQuota{
		UserID:              userID,
		Tier:                domain.TierFree,
		LastResetDay:        today,
		LastMonthlyResetDay: monthStart,
		Watermark:           true,
		RetentionDays:       retention,
		FreeExpiryDay:       today + freeEntitlementDays,
		DeviceTier:          deviceTier,
	}
}
