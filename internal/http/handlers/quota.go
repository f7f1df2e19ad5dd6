package handlers

import (
	"net/http"
	"time"

	"billserver/internal/quota"
)

type quotaStatusResponse struct {
	Tier        string     `json:"tier"`
	Verdict     string     `json:"verdict"`
	DailyUsed   int        `json:"daily_used"`
	DailyLimit  *int       `json:"daily_limit,omitempty"`
	Remaining   *int       `json:"remaining,omitempty"`
	MonthlyUsed int        `json:"monthly_used"`
	Watermark   bool       `json:"watermark"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`
}

// QuotaStatus is the probe endpoint: it reports availability without
// spending a slot, so clients can render banners before the user acts.
func (a *App) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	verdict, err := a.Gate.Evaluate(r.Context(), userID, false)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("quota probe failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not determine quota")
		return
	}

	rec, err := a.Quotas.Get(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("quota record load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load account")
		return
	}

	resp := quotaStatusResponse{
		Tier:        string(rec.Tier),
		Verdict:     verdictCode(verdict),
		DailyUsed:   rec.DailyUsed,
		MonthlyUsed: rec.MonthlyUsed,
		Watermark:   rec.Watermark,
	}
	switch v := verdict.(type) {
	case quota.Allowed:
		remaining := v.Remaining
		limit := rec.DailyUsed + remaining + 1
		resp.Remaining = &remaining
		resp.DailyLimit = &limit
	case quota.DailyCapReached:
		zero := 0
		limit := v.Limit
		reset := v.ResetAt
		resp.Remaining = &zero
		resp.DailyLimit = &limit
		resp.ResetAt = &reset
	}
	a.json(w, http.StatusOK, resp)
}
