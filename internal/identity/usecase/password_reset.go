package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email       string `validate:"required,email"`
	OTP         string `validate:"required,otp_code"`
	NewPassword string `validate:"required,password"`
}

func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	t := entity.NewTuple(in.Email, entity.ChannelEmail, entity.PurposeForgotPassword)
	ok, err := s.engine.Verify(ctx, t, strings.TrimSpace(in.OTP))
	if err != nil {
		return err
	}
	if !ok {
		slog.WarnContext(ctx, "password reset otp rejected")
		return errInvalidCode()
	}

	user, err := s.users.GetUserByEmail(ctx, t.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found after password reset otp")
		return goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "error", err)
		return storeErr(err)
	}

	return s.setPassword(ctx, user.ID, in.NewPassword)
}
