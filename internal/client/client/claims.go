package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of bearer token claims the client displays.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// ParseTokenClaims decodes the claims of a JWT bearer token without
// verifying its signature. The token stays opaque to every other part of
// the client; this is only used to show when the session expires.
func ParseTokenClaims(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}

	var out TokenClaims
	switch sub := claims["sub"].(type) {
	case string:
		out.Subject = sub
	case float64:
		out.Subject = strconv.FormatInt(int64(sub), 10)
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
