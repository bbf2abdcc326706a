// Package auth issues and validates barber access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "barber-queue"

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("jwt secret key is required")
)

// Config contains token configuration.
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// Claims are the JWT claims of a barber token.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HS256 barber tokens.
type Authenticator struct {
	config Config
	now    func() time.Time
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(config Config) (*Authenticator, error) {
	if config.SecretKey == "" {
		return nil, ErrMissingKey
	}
	if config.TokenDuration <= 0 {
		config.TokenDuration = 12 * time.Hour
	}
	return &Authenticator{config: config, now: time.Now}, nil
}

// IssueToken creates a signed token for a barber.
func (a *Authenticator) IssueToken(barberID string) (string, error) {
	if barberID == "" {
		return "", errors.New("barber id is required")
	}

	now := a.now()
	claims := Claims{
		Role: domain.RoleBarber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   barberID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns the barber ID and role it carries.
func (a *Authenticator) ValidateToken(_ context.Context, tokenString string) (string, domain.Role, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(_ *jwt.Token) (interface{}, error) {
			return []byte(a.config.SecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" || !claims.Role.IsValid() {
		return "", "", ErrInvalidToken
	}

	return claims.Subject, claims.Role, nil
}
