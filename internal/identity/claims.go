package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims mirrors the session token payload issued by the identity
// service.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a session token without verifying it. The client
// never holds the signing secret; verification belongs to the server.
// Claims are used to recover the user identity at login and to pre-empt
// requests that would fail with an expired token anyway.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	return claims, nil
}

func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}
