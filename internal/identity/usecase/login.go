package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type LoginInput struct {
	Username  string `validate:"required,max=255"`
	Password  string `validate:"required"`
	UserAgent string
	IP        string
}

type LoginOutput struct {
	VerificationRequired bool
	AccessToken          string
	Username             string
	Email                string
}

// Login accepts a username or an email. With login verification enabled an
// unrecognised device gets a code by email instead of a token.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.credentialUser(ctx, in.Username, in.Password)
	if err != nil {
		return nil, err
	}

	if s.cfg.GetBool("modules.identity.login_verification.enabled") {
		trusted, err := s.devices.IsTrustedDevice(ctx, user.ID, s.fingerprint(in.UserAgent, in.IP))
		if err != nil {
			// fail closed: an unknown device state still gets a code
			slog.WarnContext(ctx, "failed to check trusted device", "user_id", user.ID, "error", err)
		}

		if !trusted {
			t := entity.NewTuple(user.Email, entity.ChannelEmail, entity.PurposeLoginVerification)
			if _, err := s.engine.GenerateAndSend(ctx, t); err != nil {
				return nil, err
			}

			return &LoginOutput{VerificationRequired: true, Username: user.Username, Email: user.Email}, nil
		}
	}

	return s.issueToken(ctx, user)
}

func (s *Usecase) credentialUser(ctx context.Context, login, password string) (*entity.User, error) {
	login = strings.TrimSpace(login)

	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "login", login)
		return nil, goerror.NewBusiness("Invalid username or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by login", "login", login, "error", err)
		return nil, storeErr(err)
	}

	if !s.password.Verify(user.PasswordHash, password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid username or password", goerror.CodeUnauthorized)
	}

	if err := s.ensureCanLogin(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Usecase) issueToken(ctx context.Context, user *entity.User) (*LoginOutput, error) {
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to repo update last login", "user_id", user.ID, "error", err)
		return nil, storeErr(err)
	}

	token, err := s.jwt.Generate(user.ID, user.Username)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{AccessToken: token, Username: user.Username, Email: user.Email}, nil
}

func (s *Usecase) fingerprint(userAgent, ip string) string {
	sum, err := s.hmac.Hash(userAgent + "|" + ip)
	if err != nil {
		return userAgent + "|" + ip
	}
	return string(sum)
}
