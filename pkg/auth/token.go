package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLifetime is used when the configured lifetime string cannot be parsed.
const DefaultLifetime = 7 * 24 * time.Hour

// Claims is the JWT payload carried by hive tokens.
type Claims struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	ExternalID string `json:"externalId,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed identity tokens.
type Codec struct {
	secret   []byte
	lifetime time.Duration
}

// NewCodec creates a token codec. The lifetime string is an integer plus a
// single-letter unit (s/m/h/d); anything unparseable falls back to 7 days.
func NewCodec(secret, lifetime string) *Codec {
	return &Codec{
		secret:   []byte(secret),
		lifetime: ParseLifetime(lifetime),
	}
}

// Lifetime returns the configured token lifetime.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// Issue creates a signed token for the given identity. Expiry is always
// issued-at plus the configured lifetime.
func (c *Codec) Issue(id *Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:      id.Email,
		Role:       id.Role,
		ExternalID: id.ExternalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token. It fails closed: signature mismatch,
// malformed payload, and expiry all yield (nil, false) and are
// indistinguishable to the caller.
func (c *Codec) Verify(tokenString string) (*Identity, bool) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, false
	}
	return &Identity{
		UserID:     userID,
		Email:      claims.Email,
		Role:       claims.Role,
		ExternalID: claims.ExternalID,
	}, true
}

// ParseLifetime parses a lifetime string such as "30s", "15m", "12h" or
// "7d". Any parse failure returns DefaultLifetime.
func ParseLifetime(s string) time.Duration {
	if len(s) < 2 {
		return DefaultLifetime
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return DefaultLifetime
	}
	switch s[len(s)-1] {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return DefaultLifetime
	}
}
