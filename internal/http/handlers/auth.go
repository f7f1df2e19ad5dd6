package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"billserver/internal/middleware"
)

type tokenExchangeRequest struct {
	Assertion string `json:"assertion"`
}

type tokenExchangeResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Locale string `json:"locale"`
}

// TokenExchange swaps a federated identity assertion for this service's
// bearer token. Verification of the assertion itself is delegated to the
// injected IdentityVerifier.
func (a *App) TokenExchange(w http.ResponseWriter, r *http.Request) {
	var req tokenExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Assertion == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "assertion required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	subject, email, locale, err := a.Identity.Verify(ctx, req.Assertion)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("identity verification failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid identity assertion")
		return
	}
	if locale == "" {
		locale = "en"
	}

	token, err := middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      subject,
		Locale:   locale,
		Exp:      time.Now().Add(24 * time.Hour).Unix(),
		Issuer:   "billserver",
		Audience: "billserver-mobile",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	a.json(w, http.StatusOK, tokenExchangeResponse{
		Token:  token,
		UserID: subject,
		Email:  email,
		Locale: locale,
	})
}
