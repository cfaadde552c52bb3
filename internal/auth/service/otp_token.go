package service

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/idx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// OtpTokenService manages the stateful verification flows: one record
// per in-flight signup or email change, carrying the resend budget and
// any payload to apply on confirmation. The challenge codes themselves
// are minted and redeemed through OtpService, so a flow always has a
// matching live challenge until it is consumed or abandoned.
type OtpTokenService struct {
	Store       store.Store
	Otps        *OtpService
	TTL         time.Duration
	ResendLimit int
}

// StartFlowParams describes a new verification flow.
type StartFlowParams struct {
	UserID   string
	Email    string
	NewEmail string
	Purpose  string
	Pending  *domain.PendingSignup
}

// Start begins a fresh flow, replacing any in-flight one for the same
// user or email and purpose. The returned record carries the code to
// deliver.
func (s *OtpTokenService) Start(ctx context.Context, p StartFlowParams) (domain.OtpToken, error) {
	// A signup flow predates its account, so successive attempts carry
	// different flow user IDs; the email is the stable key. Clear both
	// scopes so exactly one flow is live afterwards.
	if _, err := s.Store.OtpTokens().DeleteByEmailAndPurpose(ctx, p.Email, p.Purpose); err != nil {
		return domain.OtpToken{}, err
	}
	if _, err := s.Store.OtpTokens().DeleteByUserAndPurpose(ctx, p.UserID, p.Purpose); err != nil {
		return domain.OtpToken{}, err
	}

	target := p.Email
	if p.NewEmail != "" {
		target = p.NewEmail
	}

	// Challenges left by a replaced flow die with it; their flow user
	// IDs differ, so the scoped delete inside Create cannot reach them.
	if _, err := s.Store.Otps().DeleteByEmailAndPurpose(ctx, target, p.Purpose); err != nil {
		return domain.OtpToken{}, err
	}

	otp, err := s.Otps.Create(ctx, p.UserID, target, p.Purpose)
	if err != nil {
		return domain.OtpToken{}, err
	}

	now := time.Now().UTC()
	t := domain.OtpToken{
		ID:        idx.New().String(),
		UserID:    p.UserID,
		Email:     p.Email,
		NewEmail:  p.NewEmail,
		Code:      otp.Code,
		Purpose:   p.Purpose,
		Pending:   p.Pending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}

	if err := s.Store.OtpTokens().CreateOtpToken(ctx, t); err != nil {
		return domain.OtpToken{}, err
	}
	return t, nil
}

// Resend rotates the code on the newest live flow for the email and
// charges one unit of the resend budget. Once the budget is spent the
// flow is destroyed and the caller gets ErrResendLimit; the user must
// start over.
func (s *OtpTokenService) Resend(ctx context.Context, email, purpose string) (domain.OtpToken, error) {
	t, err := s.Store.OtpTokens().GetLatestActiveByEmail(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OtpToken{}, ErrNoActiveFlow
		}
		return domain.OtpToken{}, err
	}
	return s.resend(ctx, t)
}

// ResendForUser is the user-keyed variant for flows on an existing
// account, such as an email change.
func (s *OtpTokenService) ResendForUser(ctx context.Context, userID, purpose string) (domain.OtpToken, error) {
	t, err := s.Store.OtpTokens().GetLatestActiveByUser(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OtpToken{}, ErrNoActiveFlow
		}
		return domain.OtpToken{}, err
	}
	return s.resend(ctx, t)
}

func (s *OtpTokenService) resend(ctx context.Context, t domain.OtpToken) (domain.OtpToken, error) {
	l := slogx.FromContext(ctx)

	t2, err := s.Store.OtpTokens().IncrementResendCount(ctx, t.ID, s.ResendLimit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Budget exhausted (or lost a race to a concurrent resend
			// that exhausted it). Kill the flow and its challenge.
			l.Info("resend budget exhausted, destroying flow", "purpose", t.Purpose)
			if delErr := s.destroy(ctx, t); delErr != nil {
				return domain.OtpToken{}, delErr
			}
			return domain.OtpToken{}, ErrResendLimit
		}
		return domain.OtpToken{}, err
	}
	t = t2

	// Create clears the old challenge in the same scope, so rotation
	// kills the previous code in both records.
	otp, err := s.Otps.Create(ctx, t.UserID, t.DeliveryEmail(), t.Purpose)
	if err != nil {
		return domain.OtpToken{}, err
	}

	// The flow's own expiry stands; only the code rotates.
	if err := s.Store.OtpTokens().UpdateCode(ctx, t.ID, otp.Code, t.ExpiresAt); err != nil {
		return domain.OtpToken{}, err
	}

	t.Code = otp.Code
	return t, nil
}

// Consume matches a submitted code against the live flow for the email,
// redeems the underlying challenge and destroys the flow record so the
// code is single use. A dead or expired challenge leaves the flow
// intact; a resend can still mint a fresh code.
func (s *OtpTokenService) Consume(ctx context.Context, email, code, purpose string) (domain.OtpToken, error) {
	t, err := s.Store.OtpTokens().GetActiveByEmailAndCode(ctx, email, code, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OtpToken{}, ErrInvalidOtp
		}
		return domain.OtpToken{}, err
	}
	return s.consume(ctx, t, code)
}

// ConsumeForUser is the user-keyed variant. The flow's target address
// must match expectedEmail exactly; a mismatch consumes nothing.
func (s *OtpTokenService) ConsumeForUser(ctx context.Context, userID, expectedEmail, code, purpose string) (domain.OtpToken, error) {
	t, err := s.Store.OtpTokens().GetActiveByUserAndCode(ctx, userID, code, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OtpToken{}, ErrInvalidOtp
		}
		return domain.OtpToken{}, err
	}
	if t.DeliveryEmail() != expectedEmail {
		return domain.OtpToken{}, ErrInvalidOtp
	}
	return s.consume(ctx, t, code)
}

func (s *OtpTokenService) consume(ctx context.Context, t domain.OtpToken, code string) (domain.OtpToken, error) {
	// The query filters on expiry already; guard against skew anyway.
	if t.Expired(time.Now().UTC()) {
		return domain.OtpToken{}, ErrInvalidOtp
	}

	// The challenge has its own, shorter expiry; redeem it before the
	// flow record goes away.
	if err := s.Otps.Verify(ctx, t.UserID, t.DeliveryEmail(), code, t.Purpose); err != nil {
		return domain.OtpToken{}, err
	}

	if err := s.Store.OtpTokens().DeleteByID(ctx, t.ID); err != nil {
		return domain.OtpToken{}, err
	}
	return t, nil
}

// Abandon removes a flow and its challenge without confirming it, e.g.
// when the initial delivery mail fails and the signup must roll back.
func (s *OtpTokenService) Abandon(ctx context.Context, t domain.OtpToken) error {
	return s.destroy(ctx, t)
}

func (s *OtpTokenService) destroy(ctx context.Context, t domain.OtpToken) error {
	if err := s.Store.OtpTokens().DeleteByID(ctx, t.ID); err != nil {
		return err
	}
	return s.Otps.Invalidate(ctx, t.UserID, t.DeliveryEmail(), t.Purpose)
}
