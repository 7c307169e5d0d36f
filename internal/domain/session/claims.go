package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the backend puts in its access tokens.
// They are decoded without verification and are for display only: the
// client never decides validity from them.
type Claims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// DecodeClaims reads the claims of a JWT access token without verifying its
// signature. ok is false if the token is not a JWT.
func DecodeClaims(token string) (Claims, bool) {
	var parsed tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &parsed); err != nil {
		return Claims{}, false
	}

	c := Claims{
		Subject: parsed.Subject,
		Role:    Role(parsed.Role),
	}
	if parsed.ExpiresAt != nil {
		c.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return c, true
}

// Expired reports whether the claims carry an expiry in the past.
// Informational only.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
