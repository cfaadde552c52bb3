package service

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/cryptox"
	"github.com/verdantlabs/sprout/pkg/idx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// maxOtpMintAttempts bounds the collision retry loop when minting a
// code. With a 6-digit space the loop essentially never exhausts.
const maxOtpMintAttempts = 10

// OtpService mints and checks the short numeric challenges used across
// the verification flows. Codes are unique per purpose among unexpired
// challenges.
type OtpService struct {
	Store      store.Store
	CodeLength int
	TTL        time.Duration

	// GenerateCode defaults to cryptox.GenerateOTP; tests swap it for a
	// scripted sequence.
	GenerateCode func(length int) (string, error)
}

func (s *OtpService) generate() (string, error) {
	gen := s.GenerateCode
	if gen == nil {
		gen = cryptox.GenerateOTP
	}
	return gen(s.CodeLength)
}

// Create replaces any outstanding challenge in the same scope with a
// fresh one. Minting retries on code collision so no two live
// challenges for a purpose share a code.
func (s *OtpService) Create(ctx context.Context, userID, email, purpose string) (domain.Otp, error) {
	l := slogx.FromContext(ctx)

	// Stale challenges in the scope die first; only the newest code is
	// ever valid.
	if _, err := s.Store.Otps().DeleteByScope(ctx, userID, email, purpose); err != nil {
		return domain.Otp{}, err
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < maxOtpMintAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return domain.Otp{}, err
		}

		o := domain.Otp{
			ID:        idx.New().String(),
			UserID:    userID,
			Email:     email,
			Code:      code,
			Purpose:   purpose,
			CreatedAt: now,
			ExpiresAt: now.Add(s.TTL),
		}

		err = s.Store.Otps().CreateIfCodeFree(ctx, o)
		if err == nil {
			return o, nil
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Debug("otp code collision, retrying", "purpose", purpose, "attempt", attempt+1)
			continue
		}
		return domain.Otp{}, err
	}

	return domain.Otp{}, ErrOtpGeneration
}

// Verify consumes a challenge. The code must match all four
// coordinates and still be live; a hit is deleted so it cannot be
// replayed.
func (s *OtpService) Verify(ctx context.Context, userID, email, code, purpose string) error {
	o, err := s.Store.Otps().GetActive(ctx, userID, email, code, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOtp
		}
		return err
	}

	// The query already filters on expiry; this guards against clock
	// skew between insert and read.
	if o.Expired(time.Now().UTC()) {
		return ErrInvalidOtp
	}

	return s.Store.Otps().DeleteByID(ctx, o.ID)
}

// Invalidate drops every live challenge in the scope.
func (s *OtpService) Invalidate(ctx context.Context, userID, email, purpose string) error {
	_, err := s.Store.Otps().DeleteByScope(ctx, userID, email, purpose)
	return err
}
