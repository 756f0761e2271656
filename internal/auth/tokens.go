package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookshelf/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by issued tokens
type Claims struct {
	Username string `json:"username"`
	Id       string `json:"id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 signed tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens. ttl of zero issues tokens that never expire.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of t reading time from now, for deterministic expiry checks
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	c := *t
	c.now = now
	return &c
}

func (t *Tokens) Issue(user *types.User) (string, error) {
	issuedAt := t.now()

	claims := Claims{
		Username: user.Username,
		Id:       user.Id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.Id,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(t.ttl))
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return value, nil
}

// Verify checks signature, algorithm and expiry. All failures wrap ErrInvalidToken.
func (t *Tokens) Verify(value string) (*Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Id == "" {
		return nil, fmt.Errorf("%w: id claim is missing", ErrInvalidToken)
	}

	return &claims, nil
}
