package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"billserver/internal/domain"
	"billserver/internal/quota"
)

const paidRetentionDays = 365

type paymentWebhookPayload struct {
	Event      string `json:"event"`
	UserID     string `json:"user_id"`
	Plan       string `json:"plan"`
	PeriodEnd  string `json:"period_end"`
	PaymentRef string `json:"payment_ref"`
}

// PaymentWebhook handles subscription lifecycle events from the payment
// provider. Activation upgrades the quota tier immediately; cancellation
// marks the subscription so the expiry sweep downgrades it after the paid
// period ends. The gate never touches tiers itself.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	if !verifySignature(a.WebhookSecret, body, r.Header.Get("X-Webhook-Signature")) {
		a.Logger.Warn().Msg("payment webhook signature mismatch")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}

	var payload paymentWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if payload.UserID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id required")
		return
	}

	tier := domain.Tier(payload.Plan)
	switch payload.Event {
	case "subscription.activated":
		if !tier.Valid() || !tier.IsPaid() {
			a.error(w, http.StatusBadRequest, "bad_request", "unsupported plan")
			return
		}
		endDay, err := parsePeriodEnd(payload.PeriodEnd)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "period_end must be YYYY-MM-DD")
			return
		}
		sub := &domain.Subscription{
			UserID:       payload.UserID,
			Tier:         tier,
			Status:       domain.SubscriptionActive,
			PeriodEndDay: endDay,
			PaymentRef:   payload.PaymentRef,
		}
		if err := a.Subscriptions.Upsert(r.Context(), sub); err != nil {
			a.Logger.Error().Err(err).Msg("subscription upsert failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to record subscription")
			return
		}
		if err := a.Tiers.SetTier(r.Context(), payload.UserID, tier, false, paidRetentionDays, 0); err != nil {
			a.Logger.Error().Err(err).Msg("tier upgrade failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to upgrade plan")
			return
		}
		a.Logger.Info().Str("user_id", payload.UserID).Str("tier", payload.Plan).Msg("subscription activated")

	case "subscription.cancelled":
		sub, err := a.Subscriptions.Get(r.Context(), payload.UserID)
		if err != nil {
			a.error(w, http.StatusNotFound, "not_found", "no subscription for user")
			return
		}
		sub.Status = domain.SubscriptionCancelled
		if err := a.Subscriptions.Upsert(r.Context(), sub); err != nil {
			a.Logger.Error().Err(err).Msg("subscription cancel failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to record cancellation")
			return
		}
		a.Logger.Info().Str("user_id", payload.UserID).Msg("subscription cancelled, tier kept until period end")

	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported event")
		return
	}

	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func parsePeriodEnd(v string) (int, error) {
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return 0, err
	}
	return quota.DayOrdinal(t), nil
}
