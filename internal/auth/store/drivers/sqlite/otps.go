package sqlite

import (
	"context"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
)

type otpsRepo struct {
	q querier
}

func (r *otpsRepo) CreateIfCodeFree(ctx context.Context, o domain.Otp) error {
	// Single guarded insert: the row only lands when no live challenge
	// for the same purpose already carries this code. Two goroutines
	// minting the same code cannot both succeed.
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO otps (id, user_id, email, code, purpose, created_at, expires_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM otps WHERE purpose = ? AND code = ? AND expires_at > ?
		)`,
		o.ID, o.UserID, o.Email, o.Code, o.Purpose, o.CreatedAt.UTC(), o.ExpiresAt.UTC(),
		o.Purpose, o.Code, now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *otpsRepo) GetActive(ctx context.Context, userID, email, code, purpose string) (domain.Otp, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, email, code, purpose, created_at, expires_at
		FROM otps
		WHERE user_id = ? AND email = ? AND code = ? AND purpose = ? AND expires_at > ?`,
		userID, email, code, purpose, now())

	var o domain.Otp
	err := row.Scan(&o.ID, &o.UserID, &o.Email, &o.Code, &o.Purpose, &o.CreatedAt, &o.ExpiresAt)
	if err != nil {
		return domain.Otp{}, mapNotFound(err)
	}
	return o, nil
}

func (r *otpsRepo) DeleteByScope(ctx context.Context, userID, email, purpose string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM otps WHERE user_id = ? AND email = ? AND purpose = ?`,
		userID, email, purpose)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *otpsRepo) DeleteByEmailAndPurpose(ctx context.Context, email, purpose string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM otps WHERE email = ? AND purpose = ?`,
		email, purpose)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *otpsRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otps WHERE id = ?`, id)
	return err
}

func (r *otpsRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= ?`, now())
	return err
}
