package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the fields paydash reads from an access credential.
type AccessClaims struct {
	UserID    any    `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Expiry returns the expiry time, or the zero time when the claim is missing.
func (c *AccessClaims) Expiry() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// Expired reports whether the exp claim lies before now.
func (c *AccessClaims) Expired(now time.Time) bool {
	exp := c.Expiry()
	return !exp.IsZero() && now.After(exp)
}

// User returns the user id claim as a string.
func (c *AccessClaims) User() string {
	switch v := c.UserID.(type) {
	case nil:
		return c.RegisteredClaims.Subject
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// InspectAccess decodes an access credential without verifying its signature.
// It is for display only; the server stays the authority on expiry.
func InspectAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access credential: %w", err)
	}
	return claims, nil
}
