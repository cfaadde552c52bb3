package service

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/cryptox"
	"github.com/verdantlabs/sprout/pkg/mailx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// AuthService orchestrates the account lifecycle: signup with email
// verification, login, token refresh, logout, password change/reset and
// email change. It composes the token, challenge and flow services and
// owns outbound mail.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	Otps   *OtpService
	Flows  *OtpTokenService
	Mailer mailx.Mailer

	// ResetTTL bounds the password reset link; ResetURLBase is the
	// frontend URL the token is appended to.
	ResetTTL     time.Duration
	ResetURLBase string
}

// Login exchanges credentials for a token pair.
//
// An unknown email and a wrong password fail differently on purpose:
// the product's signup screen relies on the distinction.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed: bad password", "user_id", user.ID)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if err := s.Store.Users().TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("login ok", "user_id", user.ID)
	return s.Tokens.IssuePair(ctx, user)
}

// Refresh validates a refresh token against the current user record and
// mints a replacement pair carrying the current token_version.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	user, err := s.Tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return s.Tokens.IssuePair(ctx, user)
}

// Logout bumps the user's token_version, revoking every outstanding
// access and refresh token at once.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.Store.Users().IncrementTokenVersion(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Me returns the user record for an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}
