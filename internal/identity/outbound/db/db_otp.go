package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
)

const otpColumns = `id, identifier, channel, purpose, code_hash, created_at, expires_at, used, used_at`

func scanOTP(row pgx.Row) (*entity.OTP, error) {
	var (
		o          entity.OTP
		ch, target int16
	)
	if err := row.Scan(
		&o.ID, &o.Identifier, &ch, &target, &o.CodeHash,
		&o.CreatedAt, &o.ExpiresAt, &o.Used, &o.UsedAt,
	); err != nil {
		return nil, err
	}
	o.Channel = entity.Channel(ch)
	o.Purpose = entity.Purpose(target)
	return &o, nil
}

// ReplaceOTP drops every record of the tuple and inserts otp in one transaction.
func (s *DB) ReplaceOTP(ctx context.Context, otp entity.OTP) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceOTP")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	if _, err := tx.Exec(ctx,
		`DELETE FROM identity_otps WHERE identifier = $1 AND channel = $2 AND purpose = $3`,
		otp.Identifier, int16(otp.Channel), int16(otp.Purpose),
	); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO identity_otps (id, identifier, channel, purpose, code_hash, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false)`,
		otp.ID, otp.Identifier, int16(otp.Channel), int16(otp.Purpose), otp.CodeHash, otp.CreatedAt, otp.ExpiresAt,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *DB) FindActiveOTP(ctx context.Context, t entity.Tuple, codeHash string) (_ *entity.OTP, err error) {
	ctx, span := s.startSpan(ctx, "FindActiveOTP")
	defer func() { s.endSpan(span, err) }()

	otp, err := scanOTP(s.conn.QueryRow(ctx,
		`SELECT `+otpColumns+` FROM identity_otps
		WHERE identifier = $1 AND channel = $2 AND purpose = $3 AND code_hash = $4 AND used = false
		LIMIT 1`,
		t.Identifier, int16(t.Channel), int16(t.Purpose), codeHash,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return otp, nil
}

func (s *DB) FindLatestOTP(ctx context.Context, t entity.Tuple) (_ *entity.OTP, err error) {
	ctx, span := s.startSpan(ctx, "FindLatestOTP")
	defer func() { s.endSpan(span, err) }()

	otp, err := scanOTP(s.conn.QueryRow(ctx,
		`SELECT `+otpColumns+` FROM identity_otps
		WHERE identifier = $1 AND channel = $2 AND purpose = $3 AND used = false
		ORDER BY created_at DESC
		LIMIT 1`,
		t.Identifier, int16(t.Channel), int16(t.Purpose),
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return otp, nil
}

// MarkOTPUsed flips used only if it is still false, so a code is consumed once.
func (s *DB) MarkOTPUsed(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkOTPUsed")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE identity_otps SET used = true, used_at = $2 WHERE id = $1 AND used = false`,
		id, at,
	)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) DeleteOTPTuple(ctx context.Context, t entity.Tuple) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteOTPTuple")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`DELETE FROM identity_otps WHERE identifier = $1 AND channel = $2 AND purpose = $3`,
		t.Identifier, int16(t.Channel), int16(t.Purpose),
	)
	return s.mapError(err)
}

func (s *DB) DeleteExpiredOTP(ctx context.Context, before time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpiredOTP")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_otps WHERE expires_at < $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
