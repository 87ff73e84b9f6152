package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type OTPStatusInput struct {
	Identifier string `validate:"required,max=255"`
	Channel    string `validate:"required"`
	Purpose    string `validate:"required"`
}

type SweepOTPOutput struct {
	Deleted int64
}

// OTPStatus is a support lookup; it never exposes the code.
func (s *Usecase) OTPStatus(ctx context.Context, in OTPStatusInput) (*entity.OTPStatus, error) {
	ctx, span := s.startSpan(ctx, "OTPStatus")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, "otp", "read")
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	t, err := parseTuple(in.Identifier, in.Channel, in.Purpose)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "otp status requested", "by", clm.UserID, "tuple", t.Key())

	return s.engine.Status(ctx, t)
}

func (s *Usecase) SweepOTP(ctx context.Context) (*SweepOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "SweepOTP")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, "otp", "sweep")
	if err != nil {
		return nil, err
	}

	n, err := s.engine.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "otp sweep requested", "by", clm.UserID, "deleted", n)

	return &SweepOTPOutput{Deleted: n}, nil
}
