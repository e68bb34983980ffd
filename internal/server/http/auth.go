// Package httpserver exposes the RingTap HTTP API.
package httpserver

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ringtap/ringtap/internal/errs"
)

// RoleService marks tokens issued to backend services; such callers get
// elevated behavior on status lookups (first-touch auto-creation).
const RoleService = "service"

type accessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens issued by the account backend.
type TokenVerifier struct{ signKey []byte }

// NewTokenVerifier constructs a verifier for the shared signing key.
func NewTokenVerifier(signKey []byte) *TokenVerifier {
	return &TokenVerifier{signKey: signKey}
}

// Verify checks signature and validity and returns the subject and role.
func (v *TokenVerifier) Verify(token string) (userID, role string, err error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", errs.ErrUnauthorized
	}

	validator := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := validator.Validate(&claims.RegisteredClaims); err != nil {
		return "", "", errs.ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", "", errs.ErrUnauthorized
	}
	return claims.Subject, claims.Role, nil
}
