package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type VerifyEmailInput struct {
	Email string `validate:"required,email"`
	OTP   string `validate:"required,otp_code"`
}

type VerifyMobileInput struct {
	Mobile string `validate:"required,mobile"`
	OTP    string `validate:"required,otp_code"`
}

type VerifyOutput struct {
	Activated bool
}

func (s *Usecase) VerifyEmail(ctx context.Context, in VerifyEmailInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyEmail")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	t := entity.NewTuple(in.Email, entity.ChannelEmail, entity.PurposeRegistration)

	return s.verifyChannel(ctx, t, in.OTP, s.users.GetUserByEmail, s.convergence.MarkEmailVerified)
}

func (s *Usecase) VerifyMobile(ctx context.Context, in VerifyMobileInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyMobile")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	t := entity.NewTuple(in.Mobile, entity.ChannelSMS, entity.PurposeRegistration)

	return s.verifyChannel(ctx, t, in.OTP, s.users.GetUserByMobile, s.convergence.MarkMobileVerified)
}

func (s *Usecase) verifyChannel(
	ctx context.Context,
	t entity.Tuple,
	code string,
	lookup func(context.Context, string) (*entity.User, error),
	mark func(context.Context, int64) (*entity.Convergence, error),
) (*VerifyOutput, error) {
	user, err := lookup(ctx, t.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "channel", t.Channel.String())
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user", "channel", t.Channel.String(), "error", err)
		return nil, storeErr(err)
	}

	ok, err := s.engine.Verify(ctx, t, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "registration otp rejected", "channel", t.Channel.String())
		return nil, errInvalidCode()
	}

	res, err := mark(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Activated: res.Activated}, nil
}
