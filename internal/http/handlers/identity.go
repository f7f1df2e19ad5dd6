package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"billserver/internal/infra/oidc"
)

// OIDCIdentity verifies federated ID tokens (Google sign-in) through the
// provider's JWKS.
type OIDCIdentity struct {
	Verifier *oidc.Verifier
}

func (v OIDCIdentity) Verify(ctx context.Context, assertion string) (string, string, string, error) {
	claims, err := v.Verifier.VerifyIDToken(ctx, assertion)
	if err != nil {
		return "", "", "", err
	}
	return claims.Subject, claims.Email, claims.Locale, nil
}

// AssertionVerifier verifies HS256-signed identity assertions issued by the
// mobile sign-in flow. The assertion is a compact JWT whose subject becomes
// the account's stable user ID.
type AssertionVerifier struct {
	Secret string
}

type assertionClaims struct {
	Sub    string `json:"sub"`
	Email  string `json:"email"`
	Locale string `json:"locale"`
	Exp    int64  `json:"exp"`
}

func (v AssertionVerifier) Verify(_ context.Context, assertion string) (string, string, string, error) {
	parts := strings.Split(assertion, ".")
	if len(parts) != 3 {
		return "", "", "", errors.New("malformed assertion")
	}
	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", "", "", errors.New("invalid assertion signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", "", err
	}
	var claims assertionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", "", "", err
	}
	if claims.Sub == "" {
		return "", "", "", errors.New("assertion missing subject")
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return "", "", "", errors.New("assertion expired")
	}
	return claims.Sub, claims.Email, claims.Locale, nil
}
