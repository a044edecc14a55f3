package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience binds tokens to this system. Tokens minted for anything else are
// rejected by Verify.
const Audience = "backoffice_admin"

// DefaultTTL is the validity window of a freshly issued session token.
const DefaultTTL = 24 * time.Hour

// Claims is the session token payload. The permission list is computed once
// at login and travels with the token; it is signed, not encrypted.
type Claims struct {
	// User ID
	ID int64 `json:"id"`

	Username string `json:"username"`

	// API paths the holder may call, matched exactly against the request path.
	Permissions []string `json:"permissions"`

	jwt.RegisteredClaims
}

// HasPermission reports whether path is one of the embedded permissions.
// There is no prefix, wildcard or method matching.
func (c *Claims) HasPermission(path string) bool {
	return slices.Contains(c.Permissions, path)
}

// Remaining returns how long the token stays valid after now. A token without
// an expiry reports zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
