package service

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/jwtx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// TokenService issues and validates the access/refresh token pair.
//
// Every token carries the user's token_version at signing time.
// Validation re-reads the user record and rejects tokens minted before
// the last version bump, so a password change or logout revokes
// everything outstanding.
type TokenService struct {
	Codec      *jwtx.Codec
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssuePair signs a fresh access/refresh pair for the user.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	now := time.Now()

	access, err := s.Codec.Sign(user.ID, jwtx.TypeAccess, user.TokenVersion, now.Add(s.AccessTTL))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Codec.Sign(user.ID, jwtx.TypeRefresh, user.TokenVersion, now.Add(s.RefreshTTL))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// ValidateAccess checks an access token end to end and returns the
// owning user ID. All failure modes flatten to ErrInvalidToken so the
// caller leaks nothing about why a token was rejected.
func (s *TokenService) ValidateAccess(ctx context.Context, token string) (string, error) {
	user, err := s.validate(ctx, token, jwtx.TypeAccess)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ValidateRefresh checks a refresh token and returns the full user
// record so the caller can mint a replacement pair.
func (s *TokenService) ValidateRefresh(ctx context.Context, token string) (domain.User, error) {
	return s.validate(ctx, token, jwtx.TypeRefresh)
}

func (s *TokenService) validate(ctx context.Context, token, tokenType string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(token, tokenType)
	if err != nil {
		l.Debug("token verify failed", "type", tokenType, "err", err)
		return domain.User{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}

	// A version mismatch means the token predates a revocation event.
	if claims.TokenVersion != user.TokenVersion {
		l.Info("token rejected: stale version",
			"user_id", user.ID,
			"token_version", claims.TokenVersion,
			"current_version", user.TokenVersion,
		)
		return domain.User{}, ErrInvalidToken
	}

	return user, nil
}
