package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PasswordForgotInput struct {
	Email string `validate:"required,email"`
}

// PasswordForgot answers the same way whether or not the account exists.
// Only a known account gets a code.
func (s *Usecase) PasswordForgot(ctx context.Context, in PasswordForgotInput) error {
	ctx, span := s.startSpan(ctx, "PasswordForgot")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.InfoContext(ctx, "password forgot for unknown email")
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "error", err)
		return nil
	}

	t := entity.NewTuple(user.Email, entity.ChannelEmail, entity.PurposeForgotPassword)
	if _, err := s.engine.GenerateAndSend(ctx, t); err != nil {
		slog.ErrorContext(ctx, "failed to send password forgot otp", "user_id", user.ID, "error", err)
	}

	return nil
}
