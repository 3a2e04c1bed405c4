package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medtrack/internal/ports/auth"
)

var (
	ErrSecretMissing = errors.New("jwt secret not configured")
	ErrTokenEmpty    = errors.New("token is empty")
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier valida tokens HS256 firmados con un secreto compartido.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ auth.AuthVerifier = (*Verifier)(nil)

func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretMissing
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	claims := &tokenClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("jwt verify failed: %w", err)
	}
	if !parsed.Valid {
		return auth.Claims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return auth.Claims{}, errors.New("subject claim required")
	}

	return auth.Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Source: "jwt",
	}, nil
}

// Issue firma un token para subject; lo usa el CLI para generar tokens de desarrollo.
func (v *Verifier) Issue(subject, email string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("subject required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	})
	return tok.SignedString(v.secret)
}
