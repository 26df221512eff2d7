package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT session token without verifying
// its signature. It is a display hint only; the server remains the
// authority and signals expiry with a 401.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expiry returns the current token's expiry, if it carries one.
func (m *Manager) Expiry() (time.Time, bool) {
	return TokenExpiry(m.Token())
}
