package service

import (
	"context"
	"errors"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	authmail "github.com/verdantlabs/sprout/internal/auth/mail"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/cryptox"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// RequestEmailChange starts a verification flow and mails a code to the
// address the user wants to move to. The caller must reauthenticate
// with their current password, and the code is bound to the user and
// the new address, so only someone who holds the password and can read
// that inbox can complete the change. Repeated requests replace the
// flow; repeated deliveries of the same flow go through
// ResendEmailChangeCode and its budget.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail, currentPassword string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		l.Info("email change rejected, wrong password", "user_id", userID)
		return ErrInvalidCredentials
	}

	// Refuse early when the target address already has an account.
	_, err = s.Store.Users().GetUserByEmail(ctx, newEmail)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	flow, err := s.Flows.Start(ctx, StartFlowParams{
		UserID:   userID,
		Email:    user.Email,
		NewEmail: newEmail,
		Purpose:  domain.OtpPurposeEmailChange,
	})
	if err != nil {
		return err
	}

	if err := s.sendEmailChangeCode(ctx, user.FirstName, flow); err != nil {
		l.Warn("email change mail failed, rolling back flow", "user_id", userID, "err", err)
		if delErr := s.Flows.Abandon(ctx, flow); delErr != nil {
			return delErr
		}
		return ErrMailDelivery
	}

	l.Info("email change requested", "user_id", userID)
	return nil
}

// ResendEmailChangeCode rotates the pending code and mails it to the
// target address again, within the flow's resend budget.
func (s *AuthService) ResendEmailChangeCode(ctx context.Context, userID string) error {
	flow, err := s.Flows.ResendForUser(ctx, userID, domain.OtpPurposeEmailChange)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.sendEmailChangeCode(ctx, user.FirstName, flow); err != nil {
		return ErrMailDelivery
	}
	return nil
}

// ConfirmEmailChange redeems the code and rewrites the address. The
// update is conditional on the email the user held when the flow
// started; if it moved in the meantime the confirm fails terminally
// rather than clobbering a concurrent change.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID, newEmail, code string) error {
	l := slogx.FromContext(ctx)

	flow, err := s.Flows.ConsumeForUser(ctx, userID, newEmail, code, domain.OtpPurposeEmailChange)
	if err != nil {
		return err
	}

	err = s.Store.Users().UpdateEmailIfCurrent(ctx, userID, flow.Email, newEmail)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailTaken
		}
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("email change lost race, aborting", "user_id", userID)
			return ErrEmailUpdateFailed
		}
		return err
	}

	l.Info("email changed", "user_id", userID)
	return nil
}

func (s *AuthService) sendEmailChangeCode(ctx context.Context, name string, flow domain.OtpToken) error {
	subject, body, err := authmail.RenderVerificationCode(authmail.VerificationCode{
		Name:          name,
		Code:          flow.Code,
		ExpiryMinutes: int(s.Otps.TTL.Minutes()),
		Purpose:       domain.OtpPurposeEmailChange,
	})
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, flow.NewEmail, subject, body, true)
}
