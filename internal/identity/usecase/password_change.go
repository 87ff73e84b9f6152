package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type PasswordChangeInput struct {
	OldPassword string `validate:"required"`
	NewPassword string `validate:"required,password"`
}

func (s *Usecase) PasswordChange(ctx context.Context, in PasswordChangeInput) error {
	ctx, span := s.startSpan(ctx, "PasswordChange")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.users.GetUserByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", clm.UserID)
		return goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", clm.UserID, "error", err)
		return storeErr(err)
	}

	if !s.password.Verify(user.PasswordHash, in.OldPassword) {
		slog.WarnContext(ctx, "old password not match", "user_id", user.ID)
		return goerror.NewBusiness("Old password is incorrect", goerror.CodeBadRequest)
	}

	return s.setPassword(ctx, user.ID, in.NewPassword)
}

func (s *Usecase) setPassword(ctx context.Context, userID int64, password string) error {
	passHash, err := s.password.Hash(password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.users.UpdateUserPassword(ctx, userID, string(passHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo update user password", "user_id", userID, "error", err)
		return storeErr(err)
	}

	return nil
}
