package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type LoginVerifyInput struct {
	Username  string `validate:"required,max=255"`
	Password  string `validate:"required"`
	OTP       string `validate:"required,otp_code"`
	UserAgent string
	IP        string
}

// LoginVerify completes a login that required a code. The device is
// remembered so the next login from it skips the step.
func (s *Usecase) LoginVerify(ctx context.Context, in LoginVerifyInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "LoginVerify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.credentialUser(ctx, in.Username, in.Password)
	if err != nil {
		return nil, err
	}

	t := entity.NewTuple(user.Email, entity.ChannelEmail, entity.PurposeLoginVerification)
	ok, err := s.engine.Verify(ctx, t, strings.TrimSpace(in.OTP))
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "login verification otp rejected", "user_id", user.ID)
		return nil, errInvalidCode()
	}

	ttl := s.cfg.GetDay("modules.identity.login_verification.remember_days")
	if ttl > 0 {
		if err := s.devices.TrustDevice(ctx, user.ID, s.fingerprint(in.UserAgent, in.IP), ttl); err != nil {
			slog.WarnContext(ctx, "failed to remember trusted device", "user_id", user.ID, "error", err)
		}
	}

	return s.issueToken(ctx, user)
}
