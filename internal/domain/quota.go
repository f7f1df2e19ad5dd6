package domain

import "time"

// Tier enumerates subscription tiers.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// IsPaid reports whether the tier is a paid subscription.
func (t Tier) IsPaid() bool {
	return t == TierBasic || t == TierPro || t == TierEnterprise
}

// Valid reports whether the tier is one of the known values.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// DeviceTier classifies the capability class of the device that provisioned
// the account. Informational only; it never affects quota policy.
type DeviceTier string

const (
	DeviceTierLowEnd   DeviceTier = "low_end"
	DeviceTierMidRange DeviceTier = "mid_range"
	DeviceTierHighEnd  DeviceTier = "high_end"
)

// UserQuota is the persisted usage record for one user. Day fields are
// epoch-day ordinals in the server's local zone; FreeExpiryDay of zero means
// no expiry (paid tiers).
type UserQuota struct {
	UserID              string
	Tier                Tier
	DailyUsed           int
	LastResetDay        int
	MonthlyUsed         int
	LastMonthlyResetDay int
	Watermark           bool
	RetentionDays       int
	FreeExpiryDay       int
	DeviceTier          DeviceTier
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Clone returns a copy of the record so callers can mutate freely.
func (q *UserQuota) Clone() *UserQuota {
	c := *q
	return &c
}
