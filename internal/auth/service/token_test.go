package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/sprout/pkg/jwtx"
)

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signupUser(t, "ivy@example.com", "correct horse battery")

	t.Run("login issues a usable pair", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, "bearer", pair.TokenType)

		userID, err := env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.NotEmpty(t, userID)

		user, err := env.Tokens.ValidateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, userID, user.ID)
	})

	t.Run("tokens are not interchangeable", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)

		_, err = env.Tokens.ValidateAccess(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)

		_, err = env.Tokens.ValidateRefresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh rotates the pair", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)

		next, err := env.Auth.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		_, err = env.Tokens.ValidateAccess(ctx, next.AccessToken)
		require.NoError(t, err)
	})

	t.Run("logout revokes everything outstanding", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)

		userID, err := env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)

		require.NoError(t, env.Auth.Logout(ctx, userID))

		_, err = env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		_, err = env.Auth.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)

		// A fresh login works again.
		_, err = env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := env.Tokens.ValidateAccess(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token for deleted user rejected", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "ivy@example.com", "correct horse battery")
		require.NoError(t, err)
		userID, err := env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)

		require.NoError(t, env.Store.Users().DeleteUser(ctx, userID))

		_, err = env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLoginFailureModes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signupUser(t, "known@example.com", "right password")

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.Auth.Login(ctx, "unknown@example.com", "whatever")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.Auth.Login(ctx, "known@example.com", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login records last_login", func(t *testing.T) {
		pair, err := env.Auth.Login(ctx, "known@example.com", "right password")
		require.NoError(t, err)
		userID, err := env.Tokens.ValidateAccess(ctx, pair.AccessToken)
		require.NoError(t, err)

		user, err := env.Auth.Me(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)
		require.WithinDuration(t, time.Now().UTC(), *user.LastLogin, 5*time.Second)
	})
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signupUser(t, "brief@example.com", "short lived")

	user, err := env.Store.Users().GetUserByEmail(ctx, "brief@example.com")
	require.NoError(t, err)

	expired, err := env.Tokens.Codec.Sign(user.ID, jwtx.TypeAccess, user.TokenVersion, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = env.Tokens.ValidateAccess(ctx, expired)
	require.ErrorIs(t, err, ErrInvalidToken)
}
