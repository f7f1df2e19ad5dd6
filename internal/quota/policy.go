package quota

import (
	"context"

	"billserver/internal/domain"
)

// Paid tiers have no meaningful daily ceiling; a large sentinel keeps the
// cap arithmetic uniform without overflow.
const paidDailyLimit = 1 << 30

// Policy is one immutable snapshot of the dynamic quota configuration. The
// gate receives a fresh snapshot per evaluation so tests can supply
// deterministic policy without process-wide state.
type Policy struct {
	KillSwitch      bool
	FreeDailyLimit  int
	FreeMonthlyCap  int
	LaunchBonus     int
	PromoEndOrdinal int
}

// DailyLimit returns the base daily invoice allowance for a tier.
func (p Policy) DailyLimit(tier domain.Tier) int {
	if tier.IsPaid() {
		return paidDailyLimit
	}
	return p.FreeDailyLimit
}

// launchBonus is the promotional extra allowance: free tier only, and only
// while today is on or before the promotional end date.
func (p Policy) launchBonus(tier domain.Tier, today int) int {
	if tier != domain.TierFree {
		return 0
	}
	if p.PromoEndOrdinal == 0 || today > p.PromoEndOrdinal {
		return 0
	}
	return p.LaunchBonus
}

// InPromo reports whether today falls inside the promotional window.
func (p Policy) InPromo(today int) bool {
	return p.PromoEndOrdinal != 0 && today <= p.PromoEndOrdinal
}

// PolicySource produces the policy snapshot used for one evaluation.
type PolicySource interface {
	Snapshot(ctx context.Context) (Policy, error)
}

// StaticPolicy is a PolicySource that always returns the same snapshot.
// It backs deployments without a remote config endpoint, and tests.
type StaticPolicy struct {
	Policy Policy
}

func (s StaticPolicy) Snapshot(context.Context) (Policy, error) {
	return s.Policy, nil
}
