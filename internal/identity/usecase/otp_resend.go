package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type ResendOTPInput struct {
	Identifier string `validate:"required,max=255"`
	Channel    string `validate:"required"`
	Purpose    string `validate:"required"`
}

func (s *Usecase) ResendOTP(ctx context.Context, in ResendOTPInput) error {
	ctx, span := s.startSpan(ctx, "ResendOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	t, err := parseTuple(in.Identifier, in.Channel, in.Purpose)
	if err != nil {
		slog.WarnContext(ctx, "invalid otp type or purpose", "channel", in.Channel, "purpose", in.Purpose)
		return err
	}

	return s.engine.Resend(ctx, t)
}

func parseTuple(identifier, channel, purpose string) (entity.Tuple, error) {
	ch, err := entity.ParseChannel(channel)
	if err != nil {
		return entity.Tuple{}, goerror.NewBusinessCause(err, "Invalid OTP type or purpose", goerror.CodeBadRequest)
	}

	p, err := entity.ParsePurpose(purpose)
	if err != nil {
		return entity.Tuple{}, goerror.NewBusinessCause(err, "Invalid OTP type or purpose", goerror.CodeBadRequest)
	}

	return entity.NewTuple(identifier, ch, p), nil
}
