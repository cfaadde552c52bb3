package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	authmail "github.com/verdantlabs/sprout/internal/auth/mail"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/cryptox"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// ChangePassword swaps the password for an authenticated user. The old
// password must verify first. The hash swap and the token_version bump
// land in one statement, so every session issued under the old password
// dies with it; the caller gets a replacement pair carrying the new
// version so their own session survives the change.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(oldPassword, user.PasswordHash); err != nil {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().UpdatePasswordAndBumpVersion(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, err
	}

	// Re-read for the bumped version before signing the new pair.
	user, err = s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("password changed", "user_id", userID)
	return s.Tokens.IssuePair(ctx, user)
}

// StartPasswordReset mints a single-use opaque token, stores it on the
// user record with an expiry, and mails a link carrying it. If the mail
// bounces, the token is cleared again so no live credential dangles.
func (s *AuthService) StartPasswordReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return err
	}

	expiresAt := time.Now().UTC().Add(s.ResetTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	subject, body, err := authmail.RenderPasswordReset(authmail.PasswordReset{
		Name:          user.FirstName,
		ResetURL:      s.ResetURLBase + token,
		ExpiryMinutes: int(s.ResetTTL.Minutes()),
	})
	if err == nil {
		err = s.Mailer.Send(ctx, user.Email, subject, body, true)
	}
	if err != nil {
		l.Warn("reset mail failed, clearing token", "user_id", user.ID, "err", err)
		if clearErr := s.Store.Users().ClearResetToken(ctx, user.ID); clearErr != nil {
			return clearErr
		}
		return ErrMailDelivery
	}

	l.Info("password reset started", "user_id", user.ID)
	return nil
}

// ConsumePasswordReset redeems a reset token and installs the new
// password. The mailed link alone identifies the account: the token is
// looked up directly, re-compared in constant time, checked against its
// expiry, and cleared in the same transaction as the password swap so
// it can never be redeemed twice.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, token, newPassword string) error {
	l := slogx.FromContext(ctx)

	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := s.Store.Users().GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if user.ResetToken == nil || user.ResetTokenExpiresAt == nil {
		return ErrInvalidResetToken
	}
	if subtle.ConstantTimeCompare([]byte(*user.ResetToken), []byte(token)) != 1 {
		return ErrInvalidResetToken
	}
	if !time.Now().UTC().Before(user.ResetTokenExpiresAt.UTC()) {
		return ErrInvalidResetToken
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordAndBumpVersion(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.Users().ClearResetToken(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	l.Info("password reset completed", "user_id", user.ID)
	return nil
}
