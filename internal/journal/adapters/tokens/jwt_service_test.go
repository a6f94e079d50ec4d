package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodnote/internal/journal/ports/services"
)

func TestServiceJWT_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewJWT("test-secret-key", "moodnote", time.Hour)

	token, err := svc.Issue(ctx, "user-123")
	require.NoError(t, err)

	userID, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestServiceJWT_Validate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 12, 9, 30, 0, 0, time.UTC)

	t.Run("expired token", func(t *testing.T) {
		svc := NewJWT("test-secret-key", "moodnote", time.Hour)
		svc.now = func() time.Time { return now }
		token, err := svc.Issue(ctx, "user-123")
		require.NoError(t, err)

		svc.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err = svc.Validate(ctx, token)

		require.ErrorIs(t, err, services.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWT("other-secret", "moodnote", time.Hour).Issue(ctx, "user-123")
		require.NoError(t, err)

		_, err = NewJWT("test-secret-key", "moodnote", time.Hour).Validate(ctx, token)

		require.ErrorIs(t, err, services.ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-123"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = NewJWT("test-secret-key", "", 0).Validate(ctx, token)

		require.ErrorIs(t, err, services.ErrInvalidToken)
	})

	t.Run("empty user id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("test-secret-key"))
		require.NoError(t, err)

		_, err = NewJWT("test-secret-key", "", 0).Validate(ctx, token)

		require.ErrorIs(t, err, services.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewJWT("k", "", 0).Validate(ctx, "not-a-token")
		require.ErrorIs(t, err, services.ErrInvalidToken)
	})
}
