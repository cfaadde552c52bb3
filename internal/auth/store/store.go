package store

import (
	"context"
	"errors"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to stop callers from accidentally nesting
// transactions.
type Store interface {
	Users() Users
	Otps() Otps
	OtpTokens() OtpTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and signup duplicate checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByResetToken resolves a password reset link back to its
	// user. Expiry is checked by the caller.
	GetUserByResetToken(ctx context.Context, token string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordAndBumpVersion swaps the password hash and increments
	// token_version in one statement so outstanding tokens die with the
	// old password.
	UpdatePasswordAndBumpVersion(ctx context.Context, userID string, newHash string) error

	// UpdateEmailIfCurrent rewrites the email only when the stored value
	// still matches expected. Returns ErrNotFound when it no longer does.
	UpdateEmailIfCurrent(ctx context.Context, userID, expected, newEmail string) error

	// IncrementTokenVersion bumps token_version, revoking all issued tokens.
	IncrementTokenVersion(ctx context.Context, userID string) error

	// SetResetToken stores a password reset token and its expiry.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// ClearResetToken nulls the reset token fields.
	ClearResetToken(ctx context.Context, userID string) error

	// TouchLastLogin records a successful login timestamp.
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	// ClearExpiredResetTokens nulls reset tokens past their expiry
	// (housekeeping).
	ClearExpiredResetTokens(ctx context.Context) error

	// DeleteUser removes the user record.
	DeleteUser(ctx context.Context, userID string) error
}

type Otps interface {
	// CreateIfCodeFree inserts the challenge only if no unexpired row for
	// the same purpose already carries the same code. Returns
	// ErrAlreadyExists on a collision so the caller can mint a new code.
	CreateIfCodeFree(ctx context.Context, o domain.Otp) error

	// GetActive returns the unexpired challenge matching all four
	// coordinates, or ErrNotFound.
	GetActive(ctx context.Context, userID, email, code, purpose string) (domain.Otp, error)

	// DeleteByScope removes all challenges for a user+email+purpose,
	// returning how many rows went away.
	DeleteByScope(ctx context.Context, userID, email, purpose string) (int64, error)

	// DeleteByEmailAndPurpose removes challenges for an email+purpose
	// regardless of user. Signup flows mint a fresh flow user ID per
	// attempt, so the email is the stable coordinate.
	DeleteByEmailAndPurpose(ctx context.Context, email, purpose string) (int64, error)

	// DeleteByID removes a single challenge after successful use.
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired removes lapsed challenges (housekeeping).
	DeleteExpired(ctx context.Context) error
}

type OtpTokens interface {
	// CreateOtpToken stores a new verification-flow record.
	CreateOtpToken(ctx context.Context, t domain.OtpToken) error

	// GetLatestActiveByUser returns the newest unexpired record for a
	// user+purpose, or ErrNotFound.
	GetLatestActiveByUser(ctx context.Context, userID, purpose string) (domain.OtpToken, error)

	// GetActiveByUserAndCode matches a submitted code against the
	// unexpired record for a user+purpose.
	GetActiveByUserAndCode(ctx context.Context, userID, code, purpose string) (domain.OtpToken, error)

	// GetLatestActiveByEmail is the email-keyed variant used before an
	// account exists (signup flows).
	GetLatestActiveByEmail(ctx context.Context, email, purpose string) (domain.OtpToken, error)

	// GetActiveByEmailAndCode matches a submitted code for an email+purpose.
	GetActiveByEmailAndCode(ctx context.Context, email, code, purpose string) (domain.OtpToken, error)

	// IncrementResendCount bumps resend_count only while it is still
	// below limit. Returns ErrNotFound when the row is gone or the limit
	// has been reached.
	IncrementResendCount(ctx context.Context, id string, limit int) (domain.OtpToken, error)

	// UpdateCode replaces the stored code. The expiry is written as
	// given; rotation does not extend a flow's lifetime.
	UpdateCode(ctx context.Context, id, code string, expiresAt time.Time) error

	// DeleteByID removes a record once consumed or abandoned.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserAndPurpose clears any in-flight flow before starting a
	// fresh one.
	DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) (int64, error)

	// DeleteByEmailAndPurpose is the email-keyed variant for flows that
	// predate an account.
	DeleteByEmailAndPurpose(ctx context.Context, email, purpose string) (int64, error)

	// DeleteExpired removes lapsed records (housekeeping).
	DeleteExpired(ctx context.Context) error
}
