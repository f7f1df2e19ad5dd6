package domain

import "context"

// InvoiceRepository handles persistence for invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id, userID string) (*Invoice, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Invoice, error)
	SetIRN(ctx context.Context, id, userID, irn, ackNo string, ackDate int64) error
}

// SubscriptionRepository handles persistence for payment subscriptions.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, userID string) (*Subscription, error)
}
