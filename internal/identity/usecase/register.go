package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RegisterInput struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"omitempty,max=100"`
	Username  string `validate:"required,username"`
	Email     string `validate:"required,email,max=255"`
	Mobile    string `validate:"required,mobile"`
	Password  string `validate:"required,password"`
}

type RegisterOutput struct {
	UserID int64
}

// Register creates a disabled account and sends a registration code to both
// its email and its mobile. The account stays stored when a dispatch fails;
// the user can ask for a resend.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	mobile := strings.TrimSpace(in.Mobile)

	taken, err := s.users.GetUserTaken(ctx, username, email, mobile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user taken", "username", username, "error", err)
		return nil, storeErr(err)
	}

	switch {
	case taken.Username:
		return nil, goerror.NewBusiness("Username already exists", goerror.CodeConflict)
	case taken.Email:
		return nil, goerror.NewBusiness("Email already exists", goerror.CodeConflict)
	case taken.Mobile:
		return nil, goerror.NewBusiness("Mobile number already exists", goerror.CodeConflict)
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "username", username, "error", err)
		return nil, goerror.NewServer(err)
	}

	userID := s.uid.Generate()
	err = s.users.CreateUser(ctx, entity.NewUser{
		ID:           userID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Username:     username,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: string(passHash),
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "user created concurrently", "username", username)
		return nil, goerror.NewBusiness("Account already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "username", username, "error", err)
		return nil, storeErr(err)
	}

	var sendErr error
	for _, t := range []entity.Tuple{
		entity.NewTuple(email, entity.ChannelEmail, entity.PurposeRegistration),
		entity.NewTuple(mobile, entity.ChannelSMS, entity.PurposeRegistration),
	} {
		if _, err := s.engine.GenerateAndSend(ctx, t); err != nil && sendErr == nil {
			sendErr = err
		}
	}
	if sendErr != nil {
		return nil, sendErr
	}

	return &RegisterOutput{UserID: userID}, nil
}
