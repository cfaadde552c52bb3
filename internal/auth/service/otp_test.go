package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/sprout/internal/auth/domain"
)

func TestOtpService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	otps := env.Auth.Otps

	t.Run("create then verify consumes the code", func(t *testing.T) {
		o, err := otps.Create(ctx, "user-1", "a@example.com", domain.OtpPurposeEmailChange)
		require.NoError(t, err)
		require.Len(t, o.Code, 6)

		require.NoError(t, otps.Verify(ctx, "user-1", "a@example.com", o.Code, domain.OtpPurposeEmailChange))

		// Single use.
		err = otps.Verify(ctx, "user-1", "a@example.com", o.Code, domain.OtpPurposeEmailChange)
		require.ErrorIs(t, err, ErrInvalidOtp)
	})

	t.Run("new code replaces the old one in the same scope", func(t *testing.T) {
		first, err := otps.Create(ctx, "user-2", "b@example.com", domain.OtpPurposeEmailChange)
		require.NoError(t, err)

		second, err := otps.Create(ctx, "user-2", "b@example.com", domain.OtpPurposeEmailChange)
		require.NoError(t, err)

		err = otps.Verify(ctx, "user-2", "b@example.com", first.Code, domain.OtpPurposeEmailChange)
		require.ErrorIs(t, err, ErrInvalidOtp)

		require.NoError(t, otps.Verify(ctx, "user-2", "b@example.com", second.Code, domain.OtpPurposeEmailChange))
	})

	t.Run("purpose scopes the code", func(t *testing.T) {
		o, err := otps.Create(ctx, "user-3", "c@example.com", domain.OtpPurposeEmailChange)
		require.NoError(t, err)

		err = otps.Verify(ctx, "user-3", "c@example.com", o.Code, domain.OtpPurposeResetPass)
		require.ErrorIs(t, err, ErrInvalidOtp)
	})

	t.Run("collision retries until a free code lands", func(t *testing.T) {
		scoped := &OtpService{
			Store:        env.Store,
			CodeLength:   6,
			TTL:          5 * time.Minute,
			GenerateCode: scriptedCodes("888888"),
		}
		first, err := scoped.Create(ctx, "user-4", "d@example.com", domain.OtpPurposeResetPass)
		require.NoError(t, err)
		require.Equal(t, "888888", first.Code)

		// Different user, same purpose: the scripted generator repeats
		// 888888 then yields a fresh value.
		scoped.GenerateCode = scriptedCodes("888888", "888888", "808080")
		second, err := scoped.Create(ctx, "user-5", "e@example.com", domain.OtpPurposeResetPass)
		require.NoError(t, err)
		require.Equal(t, "808080", second.Code)
	})

	t.Run("mint gives up after exhausting retries", func(t *testing.T) {
		scoped := &OtpService{
			Store:        env.Store,
			CodeLength:   6,
			TTL:          5 * time.Minute,
			GenerateCode: scriptedCodes("121212"),
		}
		_, err := scoped.Create(ctx, "user-6", "f@example.com", domain.OtpPurposeSignup)
		require.NoError(t, err)

		// Every mint attempt collides with the live code above.
		_, err = scoped.Create(ctx, "user-7", "g@example.com", domain.OtpPurposeSignup)
		require.ErrorIs(t, err, ErrOtpGeneration)
	})

	t.Run("invalidate clears the scope", func(t *testing.T) {
		o, err := otps.Create(ctx, "user-8", "h@example.com", domain.OtpPurposeEmailChange)
		require.NoError(t, err)

		require.NoError(t, otps.Invalidate(ctx, "user-8", "h@example.com", domain.OtpPurposeEmailChange))

		err = otps.Verify(ctx, "user-8", "h@example.com", o.Code, domain.OtpPurposeEmailChange)
		require.ErrorIs(t, err, ErrInvalidOtp)
	})
}
