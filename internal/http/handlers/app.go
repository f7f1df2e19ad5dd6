package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billserver/internal/domain"
	"billserver/internal/infra"
	"billserver/internal/middleware"
	"billserver/internal/providers/nic"
	"billserver/internal/quota"
	"billserver/internal/sqlinline"
)

// Evaluator is the quota gate surface the handlers depend on.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, consume bool) (quota.Verdict, error)
}

// IRNGenerator registers a sealed invoice payload with the e-invoicing gateway.
type IRNGenerator interface {
	GenerateIRN(ctx context.Context, sealed []byte) (*nic.Ack, error)
}

// IdentityVerifier validates an external identity assertion (the mobile
// client's federated sign-in token) and returns the stable subject.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (subject, email, locale string, err error)
}

// TierStore applies external tier changes to quota records. The gate itself
// never changes tiers; only the payment webhook and the expiry sweep do.
type TierStore interface {
	SetTier(ctx context.Context, userID string, tier domain.Tier, watermark bool, retentionDays, freeExpiryDay int) error
}

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	SQL           infra.SQLExecutor
	Gate          Evaluator
	Quotas        quota.Store
	Tiers         TierStore
	Invoices      domain.InvoiceRepository
	Subscriptions domain.SubscriptionRepository
	NIC           IRNGenerator
	Sealer        nic.PayloadSealer
	Identity      IdentityVerifier
	JWTSecret     string
	WebhookSecret string
	Logger        zerolog.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: code, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// recordUsageEvent writes a best-effort analytics event; failures are logged
// and never surfaced to the caller.
func (a *App) recordUsageEvent(ctx context.Context, userID, eventType string, success bool, props map[string]any) {
	if a.SQL == nil {
		return
	}
	rid := middleware.RequestIDFromContext(ctx)
	if _, err := uuid.Parse(rid); err != nil {
		rid = uuid.NewString()
	}
	propsJSON, _ := json.Marshal(props)
	if _, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent, userID, rid, eventType, success, propsJSON); err != nil {
		a.Logger.Warn().Err(err).Str("event", eventType).Msg("usage event insert failed")
	}
}
