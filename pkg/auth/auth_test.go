package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/book-lending/pkg/auth"
)

func TestTokenManager(t *testing.T) {
	tm := auth.NewTokenManager(auth.Config{Secret: "secret", TTL: time.Hour})

	token, expiresAt, err := tm.Issue("user-1", "Ann", "ann@mail.com")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "ann@mail.com", claims.Email)

	_, err = tm.Verify(token + "x")
	require.ErrorIs(t, err, auth.ErrTokenInvalid)

	expired := auth.NewTokenManager(auth.Config{Secret: "secret", TTL: -time.Minute})
	token, _, err = expired.Issue("user-1", "Ann", "ann@mail.com")
	require.NoError(t, err)
	_, err = tm.Verify(token)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenManager_RejectsNonHMAC(t *testing.T) {
	tm := auth.NewTokenManager(auth.Config{Secret: "secret", TTL: time.Hour})
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestAuthContext(t *testing.T) {
	_, err := auth.GetUserID(context.Background())
	require.ErrorIs(t, err, auth.ErrNoUser)

	ctx := auth.SetAuthContext(context.Background(), "user-1")
	userID, err := auth.GetUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}
