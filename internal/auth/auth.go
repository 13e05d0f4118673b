// Package auth guards the HTTP API with HS256 bearer tokens and per-client
// rate limiting.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// DefaultTokenDuration is used when NewService is given a zero duration.
const DefaultTokenDuration = 24 * time.Hour

// Claims are the JWT claims of an API token.
type Claims struct {
	jwt.RegisteredClaims
	// Gateways restricts which gateway ids the bearer may send through.
	// Empty allows all.
	Gateways []string `json:"gateways,omitempty"`
}

// AllowsGateway reports whether the token may send through id.
func (c *Claims) AllowsGateway(id string) bool {
	if c == nil || len(c.Gateways) == 0 {
		return true
	}
	for _, g := range c.Gateways {
		if g == id {
			return true
		}
	}
	return false
}

// Service issues and validates API tokens.
type Service struct {
	secret   []byte
	tokenDur time.Duration
	now      func() time.Time
}

// NewService creates a Service signing with secret.
func NewService(secret string, tokenDur time.Duration) (*Service, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if tokenDur <= 0 {
		tokenDur = DefaultTokenDuration
	}
	return &Service{secret: []byte(secret), tokenDur: tokenDur, now: time.Now}, nil
}

// GenerateToken issues a token for subject, optionally limited to gateways.
func (s *Service) GenerateToken(subject string, gateways ...string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDur)),
			ID:        uuid.NewString(),
		},
		Gateways: gateways,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and validates a token string.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
