package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type (
	// Identity is what a token says about its bearer.
	Identity struct {
		Username string
		Roles    []string
		UserID   int64
	}

	Claims struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
		UserID   int64    `json:"uid"`
		jwt.RegisteredClaims
	}

	// Tokens issues and verifies HS256 session tokens.
	Tokens struct {
		secret []byte
		ttl    time.Duration
		now    func() time.Time
	}
)

const (
	DefaultTokenTTL = time.Hour
)

// NewTokens returns a token issuer, now may be nil in which case
// time.Now is used.
func NewTokens(secret []byte, ttl time.Duration, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    now,
	}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

func (c *Claims) Identity() Identity {
	return Identity{Username: c.Username, Roles: c.Roles, UserID: c.UserID}
}

func (t *Tokens) Issue(id Identity) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		Username: id.Username,
		Roles:    id.Roles,
		UserID:   id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("unable to sign token, cause %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of token. Every failure is
// reported as ErrInvalidToken.
func (t *Tokens) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
