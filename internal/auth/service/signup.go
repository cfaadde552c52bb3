package service

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	authmail "github.com/verdantlabs/sprout/internal/auth/mail"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/cryptox"
	"github.com/verdantlabs/sprout/pkg/idx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// SignupParams is the profile data captured before verification.
type SignupParams struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Signup starts the two-step registration. No account exists until the
// mailed code is confirmed; everything needed to create it rides on the
// verification flow record.
//
// If the verification mail cannot be delivered the flow is rolled back
// so the address is not left stuck mid-signup.
func (s *AuthService) Signup(ctx context.Context, p SignupParams) error {
	l := slogx.FromContext(ctx)

	_, err := s.Store.Users().GetUserByEmail(ctx, p.Email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return err
	}

	// The flow's user ID becomes the account ID on confirmation.
	flow, err := s.Flows.Start(ctx, StartFlowParams{
		UserID:  idx.New().String(),
		Email:   p.Email,
		Purpose: domain.OtpPurposeSignup,
		Pending: &domain.PendingSignup{
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			PasswordHash: hash,
		},
	})
	if err != nil {
		return err
	}

	if err := s.sendVerificationCode(ctx, p.Email, p.FirstName, flow); err != nil {
		l.Warn("signup mail failed, rolling back flow", "err", err)
		if delErr := s.Flows.Abandon(ctx, flow); delErr != nil {
			return delErr
		}
		return ErrMailDelivery
	}

	l.Info("signup started", "flow_id", flow.ID)
	return nil
}

// ResendSignupCode rotates the pending code and mails it again, within
// the resend budget.
func (s *AuthService) ResendSignupCode(ctx context.Context, email string) error {
	flow, err := s.Flows.Resend(ctx, email, domain.OtpPurposeSignup)
	if err != nil {
		return err
	}

	name := email
	if flow.Pending != nil {
		name = flow.Pending.FirstName
	}
	if err := s.sendVerificationCode(ctx, email, name, flow); err != nil {
		return ErrMailDelivery
	}
	return nil
}

// ConfirmSignup redeems the mailed code and creates the account from
// the pending payload. The welcome mail is best effort.
func (s *AuthService) ConfirmSignup(ctx context.Context, email, code string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	flow, err := s.Flows.Consume(ctx, email, code, domain.OtpPurposeSignup)
	if err != nil {
		return domain.User{}, err
	}
	if flow.Pending == nil {
		return domain.User{}, ErrInvalidOtp
	}

	user := domain.User{
		ID:           flow.UserID,
		Email:        flow.Email,
		FirstName:    flow.Pending.FirstName,
		LastName:     flow.Pending.LastName,
		PasswordHash: flow.Pending.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	subject, body, err := authmail.RenderWelcome(authmail.Welcome{Name: user.FirstName})
	if err == nil {
		err = s.Mailer.Send(ctx, user.Email, subject, body, true)
	}
	if err != nil {
		l.Warn("welcome mail failed", "user_id", user.ID, "err", err)
	}

	l.Info("signup confirmed", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) sendVerificationCode(ctx context.Context, to, name string, flow domain.OtpToken) error {
	subject, body, err := authmail.RenderVerificationCode(authmail.VerificationCode{
		Name:          name,
		Code:          flow.Code,
		ExpiryMinutes: int(s.Otps.TTL.Minutes()),
		Purpose:       flow.Purpose,
	})
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, to, subject, body, true)
}
