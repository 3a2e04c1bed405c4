package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v, err := NewVerifier("s3cret")
	require.NoError(t, err)

	tok, err := v.Issue("user-1", "u@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "jwt", claims.Source)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier("s3cret")
	require.NoError(t, err)
	other, err := NewVerifier("other")
	require.NoError(t, err)

	foreign, err := other.Issue("user-1", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), foreign)
	assert.Error(t, err, "wrong secret")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.Error(t, err, "expired")

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.Error(t, err, "subject required")

	_, err = v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrTokenEmpty)

	_, err = NewVerifier("")
	assert.ErrorIs(t, err, ErrSecretMissing)
}
