package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
	"github.com/verdantlabs/sprout/internal/auth/store"
)

type otpTokensRepo struct {
	q querier
}

const otpTokenColumns = `id, user_id, email, new_email, code, purpose, resend_count,
	pending_data, created_at, expires_at`

func scanOtpToken(row *sql.Row) (domain.OtpToken, error) {
	var (
		t       domain.OtpToken
		pending sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Email, &t.NewEmail, &t.Code, &t.Purpose,
		&t.ResendCount, &pending, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return domain.OtpToken{}, mapNotFound(err)
	}
	if pending.Valid {
		var p domain.PendingSignup
		if err := json.Unmarshal([]byte(pending.String), &p); err != nil {
			return domain.OtpToken{}, err
		}
		t.Pending = &p
	}
	return t, nil
}

func marshalPending(p *domain.PendingSignup) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func (r *otpTokensRepo) CreateOtpToken(ctx context.Context, t domain.OtpToken) error {
	pending, err := marshalPending(t.Pending)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO otp_tokens (id, user_id, email, new_email, code, purpose,
			resend_count, pending_data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Email, t.NewEmail, t.Code, t.Purpose,
		t.ResendCount, pending, t.CreatedAt.UTC(), t.ExpiresAt.UTC())
	return err
}

func (r *otpTokensRepo) GetLatestActiveByUser(ctx context.Context, userID, purpose string) (domain.OtpToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+otpTokenColumns+`
		FROM otp_tokens
		WHERE user_id = ? AND purpose = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, purpose, now())
	return scanOtpToken(row)
}

func (r *otpTokensRepo) GetActiveByUserAndCode(ctx context.Context, userID, code, purpose string) (domain.OtpToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+otpTokenColumns+`
		FROM otp_tokens
		WHERE user_id = ? AND code = ? AND purpose = ? AND expires_at > ?`,
		userID, code, purpose, now())
	return scanOtpToken(row)
}

func (r *otpTokensRepo) GetLatestActiveByEmail(ctx context.Context, email, purpose string) (domain.OtpToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+otpTokenColumns+`
		FROM otp_tokens
		WHERE email = ? AND purpose = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`,
		email, purpose, now())
	return scanOtpToken(row)
}

func (r *otpTokensRepo) GetActiveByEmailAndCode(ctx context.Context, email, code, purpose string) (domain.OtpToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+otpTokenColumns+`
		FROM otp_tokens
		WHERE email = ? AND code = ? AND purpose = ? AND expires_at > ?`,
		email, code, purpose, now())
	return scanOtpToken(row)
}

func (r *otpTokensRepo) IncrementResendCount(ctx context.Context, id string, limit int) (domain.OtpToken, error) {
	// Conditional bump: loses the race cleanly when a concurrent resend
	// already hit the cap.
	res, err := r.q.ExecContext(ctx, `
		UPDATE otp_tokens SET resend_count = resend_count + 1
		WHERE id = ? AND resend_count < ?`,
		id, limit)
	if err != nil {
		return domain.OtpToken{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.OtpToken{}, err
	}
	if n == 0 {
		return domain.OtpToken{}, store.ErrNotFound
	}

	row := r.q.QueryRowContext(ctx,
		`SELECT `+otpTokenColumns+` FROM otp_tokens WHERE id = ?`, id)
	return scanOtpToken(row)
}

func (r *otpTokensRepo) UpdateCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE otp_tokens SET code = ?, expires_at = ? WHERE id = ?`,
		code, expiresAt.UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *otpTokensRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otp_tokens WHERE id = ?`, id)
	return err
}

func (r *otpTokensRepo) DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM otp_tokens WHERE user_id = ? AND purpose = ?`,
		userID, purpose)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *otpTokensRepo) DeleteByEmailAndPurpose(ctx context.Context, email, purpose string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM otp_tokens WHERE email = ? AND purpose = ?`,
		email, purpose)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *otpTokensRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otp_tokens WHERE expires_at <= ?`, now())
	return err
}
