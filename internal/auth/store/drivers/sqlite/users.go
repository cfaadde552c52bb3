package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, first_name, last_name, password_hash, profile_pic_url,
	token_version, reset_token, reset_token_expires_at, created_at, last_login`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		resetToken sql.NullString
		resetExp   sql.NullTime
		lastLogin  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.ProfilePicURL, &u.TokenVersion, &resetToken, &resetExp, &u.CreatedAt, &lastLogin)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.ResetToken = mapNullStringPtr(resetToken)
	u.ResetTokenExpiresAt = mapNullTimePtr(resetExp)
	u.LastLogin = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByResetToken(ctx context.Context, token string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, profile_pic_url,
			token_version, reset_token, reset_token_expires_at, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.ProfilePicURL,
		u.TokenVersion, mapOptionalString(u.ResetToken), mapOptionalTime(u.ResetTokenExpiresAt),
		u.CreatedAt.UTC(), mapOptionalTime(u.LastLogin))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdatePasswordAndBumpVersion(ctx context.Context, userID string, newHash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?`,
		newHash, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateEmailIfCurrent(ctx context.Context, userID, expected, newEmail string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET email = ? WHERE id = ? AND email = ?`,
		newEmail, userID, expected)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) IncrementTokenVersion(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET token_version = token_version + 1 WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET reset_token = ?, reset_token_expires_at = ? WHERE id = ?`,
		token, expiresAt.UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET reset_token = NULL, reset_token_expires_at = NULL WHERE id = ?`,
		userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token IS NOT NULL AND reset_token_expires_at <= ?`,
		now())
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row update into ErrNotFound so callers can
// distinguish "no such user" (or a failed conditional) from success.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
