package domain

import "time"

// SubscriptionStatus enumerates payment subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription records the paid plan attached to a user. PeriodEndDay is an
// epoch-day ordinal; once today passes it the expiry sweep downgrades the
// user's quota tier back to free.
type Subscription struct {
	UserID       string
	Tier         Tier
	Status       SubscriptionStatus
	PeriodEndDay int
	PaymentRef   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
