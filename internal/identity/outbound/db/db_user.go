package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const userColumns = `id, first_name, last_name, username, email, mobile, password_hash,
	email_verified, mobile_verified, enabled, locked, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Mobile, &u.PasswordHash,
		&u.EmailVerified, &u.MobileVerified, &u.Enabled, &u.Locked, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *DB) getUser(ctx context.Context, name, where string, arg any) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, name)
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM identity_users WHERE `+where+` LIMIT 1`, arg))
	if err != nil {
		return nil, s.mapError(err)
	}

	return u, nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	return s.getUser(ctx, "GetUserByID", `id = $1`, id)
}

func (s *DB) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.getUser(ctx, "GetUserByEmail", `email = lower($1)`, email)
}

func (s *DB) GetUserByMobile(ctx context.Context, mobile string) (*entity.User, error) {
	return s.getUser(ctx, "GetUserByMobile", `mobile = $1`, mobile)
}

func (s *DB) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	return s.getUser(ctx, "GetUserByLogin", `username = $1 OR email = lower($1)`, usernameOrEmail)
}

func (s *DB) GetUserTaken(ctx context.Context, username, email, mobile string) (_ *entity.UserTaken, err error) {
	ctx, span := s.startSpan(ctx, "GetUserTaken")
	defer func() { s.endSpan(span, err) }()

	var out entity.UserTaken
	err = s.conn.QueryRow(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM identity_users WHERE username = $1),
			EXISTS (SELECT 1 FROM identity_users WHERE email = lower($2)),
			EXISTS (SELECT 1 FROM identity_users WHERE mobile = $3)`,
		username, email, mobile,
	).Scan(&out.Username, &out.Email, &out.Mobile)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) CreateUser(ctx context.Context, in entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO identity_users (id, first_name, last_name, username, email, mobile, password_hash)
		VALUES ($1, $2, $3, $4, lower($5), $6, $7)`,
		in.ID, in.FirstName, in.LastName, in.Username, in.Email, in.Mobile, in.PasswordHash,
	)
	return s.mapError(err)
}

// The enabled expression reads the other flag as committed, and the row lock
// makes a concurrent writer of the other flag re-read it, so only one of the
// two statements can see both flags set.
const (
	markEmailVerified = `UPDATE identity_users
		SET email_verified = true, enabled = (enabled OR mobile_verified), updated_at = now()
		WHERE id = $1 AND email_verified = false
		RETURNING ` + userColumns

	markMobileVerified = `UPDATE identity_users
		SET mobile_verified = true, enabled = (enabled OR email_verified), updated_at = now()
		WHERE id = $1 AND mobile_verified = false
		RETURNING ` + userColumns
)

func (s *DB) MarkEmailVerified(ctx context.Context, id int64) (*entity.Convergence, error) {
	return s.markVerified(ctx, "MarkEmailVerified", markEmailVerified, id)
}

func (s *DB) MarkMobileVerified(ctx context.Context, id int64) (*entity.Convergence, error) {
	return s.markVerified(ctx, "MarkMobileVerified", markMobileVerified, id)
}

func (s *DB) markVerified(ctx context.Context, name, query string, id int64) (_ *entity.Convergence, err error) {
	ctx, span := s.startSpan(ctx, name)
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		// flag already set, or no such user
		cur, err := s.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &entity.Convergence{User: *cur}, nil
	}
	if err != nil {
		return nil, s.mapError(err)
	}

	return &entity.Convergence{FlagChanged: true, Activated: u.Enabled, User: *u}, nil
}

func (s *DB) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserPassword")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE identity_users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) UpdateLastLogin(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateLastLogin")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `UPDATE identity_users SET last_login_at = $2 WHERE id = $1`, id, at)
	return s.mapError(err)
}
