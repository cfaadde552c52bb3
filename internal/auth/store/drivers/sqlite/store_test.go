package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    "Fern",
		LastName:     "Moss",
		PasswordHash: "$argon2id$fake",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch", func(t *testing.T) {
		u := seedUser(t, s, "fern@example.com")

		got, err := s.Users().GetUserByEmail(ctx, "fern@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, 0, got.TokenVersion)
		require.Nil(t, got.ResetToken)
		require.Nil(t, got.LastLogin)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		seedUser(t, s, "dup@example.com")
		err := s.Users().CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Email:        "dup@example.com",
			FirstName:    "Other",
			PasswordHash: "x",
			CreatedAt:    time.Now().UTC(),
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing user maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetUserByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("password change bumps token version", func(t *testing.T) {
		u := seedUser(t, s, "rotate@example.com")

		require.NoError(t, s.Users().UpdatePasswordAndBumpVersion(ctx, u.ID, "$argon2id$new"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "$argon2id$new", got.PasswordHash)
		require.Equal(t, 1, got.TokenVersion)
	})

	t.Run("conditional email swap", func(t *testing.T) {
		u := seedUser(t, s, "old@example.com")

		// Wrong expected value leaves the row untouched.
		err := s.Users().UpdateEmailIfCurrent(ctx, u.ID, "stale@example.com", "new@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Users().UpdateEmailIfCurrent(ctx, u.ID, "old@example.com", "new@example.com"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", got.Email)
	})

	t.Run("reset token round trip", func(t *testing.T) {
		u := seedUser(t, s, "reset@example.com")
		exp := time.Now().UTC().Add(15 * time.Minute)

		require.NoError(t, s.Users().SetResetToken(ctx, u.ID, "opaque-token", exp))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResetToken)
		require.Equal(t, "opaque-token", *got.ResetToken)
		require.NotNil(t, got.ResetTokenExpiresAt)
		require.WithinDuration(t, exp, *got.ResetTokenExpiresAt, time.Second)

		require.NoError(t, s.Users().ClearResetToken(ctx, u.ID))
		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Nil(t, got.ResetToken)
		require.Nil(t, got.ResetTokenExpiresAt)
	})

	t.Run("lookup by reset token", func(t *testing.T) {
		u := seedUser(t, s, "bytoken@example.com")
		exp := time.Now().UTC().Add(15 * time.Minute)
		require.NoError(t, s.Users().SetResetToken(ctx, u.ID, "find-me-token", exp))

		got, err := s.Users().GetUserByResetToken(ctx, "find-me-token")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		_, err = s.Users().GetUserByResetToken(ctx, "no-such-token")
		require.ErrorIs(t, err, store.ErrNotFound)

		// A cleared token is no longer reachable; users without a token
		// must not match an empty probe either.
		require.NoError(t, s.Users().ClearResetToken(ctx, u.ID))
		_, err = s.Users().GetUserByResetToken(ctx, "find-me-token")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Users().GetUserByResetToken(ctx, "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestOtpsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "otp@example.com")

	mint := func(code string, expiresAt time.Time) domain.Otp {
		return domain.Otp{
			ID:        idx.New().String(),
			UserID:    u.ID,
			Email:     u.Email,
			Code:      code,
			Purpose:   domain.OtpPurposeSignup,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: expiresAt,
		}
	}

	t.Run("guarded insert rejects live duplicates", func(t *testing.T) {
		live := time.Now().UTC().Add(5 * time.Minute)
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("123456", live)))

		err := s.Otps().CreateIfCodeFree(ctx, mint("123456", live))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		// Different code is fine.
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("654321", live)))
	})

	t.Run("expired duplicate does not block", func(t *testing.T) {
		stale := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("777777", stale)))
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("777777", time.Now().UTC().Add(5*time.Minute))))
	})

	t.Run("active lookup matches all coordinates", func(t *testing.T) {
		live := time.Now().UTC().Add(5 * time.Minute)
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("424242", live)))

		got, err := s.Otps().GetActive(ctx, u.ID, u.Email, "424242", domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.Equal(t, "424242", got.Code)

		_, err = s.Otps().GetActive(ctx, u.ID, u.Email, "424242", domain.OtpPurposeResetPass)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Otps().GetActive(ctx, u.ID, "other@example.com", "424242", domain.OtpPurposeSignup)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired challenge is invisible", func(t *testing.T) {
		stale := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("999000", stale)))

		_, err := s.Otps().GetActive(ctx, u.ID, u.Email, "999000", domain.OtpPurposeSignup)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("scope delete reports count", func(t *testing.T) {
		n, err := s.Otps().DeleteByScope(ctx, u.ID, u.Email, domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.Greater(t, n, int64(0))

		n, err = s.Otps().DeleteByScope(ctx, u.ID, u.Email, domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("email delete spans users", func(t *testing.T) {
		live := time.Now().UTC().Add(5 * time.Minute)
		other := mint("313131", live)
		other.UserID = "some-other-user"
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, mint("303030", live)))
		require.NoError(t, s.Otps().CreateIfCodeFree(ctx, other))

		n, err := s.Otps().DeleteByEmailAndPurpose(ctx, u.Email, domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)
	})
}

func TestOtpTokensRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "flow@example.com")

	newToken := func(code string, createdAt time.Time) domain.OtpToken {
		return domain.OtpToken{
			ID:      idx.New().String(),
			UserID:  u.ID,
			Email:   u.Email,
			Code:    code,
			Purpose: domain.OtpPurposeSignup,
			Pending: &domain.PendingSignup{
				FirstName:    "Fern",
				LastName:     "Moss",
				PasswordHash: "$argon2id$fake",
			},
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(10 * time.Minute),
		}
	}

	t.Run("pending payload round trip", func(t *testing.T) {
		tok := newToken("111111", time.Now().UTC())
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, tok))

		got, err := s.OtpTokens().GetActiveByUserAndCode(ctx, u.ID, "111111", domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.NotNil(t, got.Pending)
		require.Equal(t, "Fern", got.Pending.FirstName)
		require.Equal(t, "$argon2id$fake", got.Pending.PasswordHash)

		_, err = s.OtpTokens().DeleteByUserAndPurpose(ctx, u.ID, domain.OtpPurposeSignup)
		require.NoError(t, err)
	})

	t.Run("latest active wins", func(t *testing.T) {
		base := time.Now().UTC()
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, newToken("222222", base.Add(-2*time.Minute))))
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, newToken("333333", base)))

		got, err := s.OtpTokens().GetLatestActiveByUser(ctx, u.ID, domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.Equal(t, "333333", got.Code)

		_, err = s.OtpTokens().DeleteByUserAndPurpose(ctx, u.ID, domain.OtpPurposeSignup)
		require.NoError(t, err)
	})

	t.Run("resend counter stops at limit", func(t *testing.T) {
		tok := newToken("444444", time.Now().UTC())
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, tok))

		const limit = 3
		for i := 1; i <= limit; i++ {
			got, err := s.OtpTokens().IncrementResendCount(ctx, tok.ID, limit)
			require.NoError(t, err)
			require.Equal(t, i, got.ResendCount)
		}

		_, err := s.OtpTokens().IncrementResendCount(ctx, tok.ID, limit)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.OtpTokens().DeleteByID(ctx, tok.ID))
	})

	t.Run("code rotation extends expiry", func(t *testing.T) {
		tok := newToken("555555", time.Now().UTC())
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, tok))

		newExp := time.Now().UTC().Add(30 * time.Minute)
		require.NoError(t, s.OtpTokens().UpdateCode(ctx, tok.ID, "666666", newExp))

		got, err := s.OtpTokens().GetActiveByUserAndCode(ctx, u.ID, "666666", domain.OtpPurposeSignup)
		require.NoError(t, err)
		require.WithinDuration(t, newExp, got.ExpiresAt, time.Second)

		_, err = s.OtpTokens().GetActiveByUserAndCode(ctx, u.ID, "555555", domain.OtpPurposeSignup)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired flows purged by housekeeping", func(t *testing.T) {
		stale := newToken("818181", time.Now().UTC().Add(-time.Hour))
		require.NoError(t, s.OtpTokens().CreateOtpToken(ctx, stale))

		require.NoError(t, s.OtpTokens().DeleteExpired(ctx))

		_, err := s.OtpTokens().GetActiveByUserAndCode(ctx, u.ID, "818181", domain.OtpPurposeSignup)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Email:        "doomed@example.com",
			FirstName:    "Doomed",
			PasswordHash: "x",
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Users().GetUserByEmail(ctx, "doomed@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
