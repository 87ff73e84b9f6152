package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedPasswordMatches(t *testing.T, f *fixture, id int64, password string) bool {
	t.Helper()

	u, err := f.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return hash.NewBcrypt(4, "").Verify(u.PasswordHash, password)
}

func TestPasswordChange(t *testing.T) {
	// Arrange
	f := newFixture(t)
	u := f.seedUser(t, 3)
	authed := jwt.SetAuth(context.Background(), jwt.Claims{UserID: u.ID, Username: u.Username})

	// Act
	noAuth := f.uc.PasswordChange(context.Background(), PasswordChangeInput{OldPassword: "Secret123", NewPassword: "NewSecret1"})
	wrongOld := f.uc.PasswordChange(authed, PasswordChangeInput{OldPassword: "Nope12345", NewPassword: "NewSecret1"})
	ok := f.uc.PasswordChange(authed, PasswordChangeInput{OldPassword: "Secret123", NewPassword: "NewSecret1"})

	// Assert
	assertStatus(t, noAuth, http.StatusUnauthorized, "")
	assertStatus(t, wrongOld, http.StatusBadRequest, "Old password is incorrect")
	require.NoError(t, ok)
	assert.True(t, storedPasswordMatches(t, f, u.ID, "NewSecret1"))
}

func TestPasswordForgotIsUniform(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		notifyErr error
		wantOTPs  int
	}{
		{name: "unknown account", email: "ghost@example.com", wantOTPs: 0},
		{name: "known account", email: "ASHA3@example.com", wantOTPs: 1},
		{name: "delivery failure hidden", email: "asha3@example.com", notifyErr: errors.New("smtp down"), wantOTPs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			f.seedUser(t, 3)
			f.notif.otpErr = tt.notifyErr

			// Act
			err := f.uc.PasswordForgot(context.Background(), PasswordForgotInput{Email: tt.email})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantOTPs, f.notif.otpCount())
		})
	}
}

func TestPasswordReset(t *testing.T) {
	// Arrange
	f := newFixture(t)
	u := f.seedUser(t, 3)
	ctx := context.Background()
	require.NoError(t, f.uc.PasswordForgot(ctx, PasswordForgotInput{Email: u.Email}))
	code := f.notif.lastCode(t, u.Email, entity.ChannelEmail, entity.PurposeForgotPassword)

	// Act
	wrong := f.uc.PasswordReset(ctx, PasswordResetInput{Email: u.Email, OTP: "000000", NewPassword: "Reset1234"})
	ok := f.uc.PasswordReset(ctx, PasswordResetInput{Email: u.Email, OTP: code, NewPassword: "Reset1234"})
	replay := f.uc.PasswordReset(ctx, PasswordResetInput{Email: u.Email, OTP: code, NewPassword: "Other1234"})

	// Assert
	assertStatus(t, wrong, http.StatusBadRequest, "Invalid or expired OTP")
	require.NoError(t, ok)
	assert.ErrorIs(t, replay, ErrInvalidCode)
	assert.True(t, storedPasswordMatches(t, f, u.ID, "Reset1234"))
}
