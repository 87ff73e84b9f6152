package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDeliveries struct {
	mu        sync.Mutex
	createErr error
	created   []entity.CreateDelivery
	updated   []entity.UpdateDelivery
}

func (m *memDeliveries) CreateDelivery(_ context.Context, d entity.CreateDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, d)
	return nil
}

func (m *memDeliveries) UpdateDeliveryStatus(_ context.Context, u entity.UpdateDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, u)
	return nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmail struct {
	err  error
	sent []sentEmail
}

func (f *fakeEmail) Send(_ context.Context, to, subject, body string) (valueobject.JSONMap, error) {
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: body})
	return valueobject.JSONMap{"provider": "smtp", "accepted": f.err == nil}, f.err
}

type sentSMS struct {
	to, body string
}

type fakeSMS struct {
	err  error
	sent []sentSMS
}

func (f *fakeSMS) Send(_ context.Context, to, body string) (valueobject.JSONMap, error) {
	f.sent = append(f.sent, sentSMS{to: to, body: body})
	return valueobject.JSONMap{"provider": "http", "status_code": 200}, f.err
}

type staticUUID string

func (s staticUUID) Generate() string { return string(s) }

type fixture struct {
	uc    *Usecase
	db    *memDeliveries
	email *fakeEmail
	sms   *fakeSMS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  name: OTPGate
modules:
  notification:
    support_email: support@otpgate.dev
`))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{db: &memDeliveries{}, email: &fakeEmail{}, sms: &fakeSMS{}}
	f.uc = NewNotification(Dependency{
		RepoDB:     f.db,
		RepoEmail:  f.email,
		RepoSMS:    f.sms,
		Config:     cfg,
		UUID:       staticUUID("0190f0aa-0000-7000-8000-0000000000d1"),
		Clock:      clock.Func(func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
	return f
}

func TestSendOTP_EmailSubjects(t *testing.T) {
	tests := []struct {
		purpose     string
		wantSubject string
		wantAction  string
	}{
		{purpose: "REGISTRATION", wantSubject: "OTPGate - Verify Your Email", wantAction: "verify your email address"},
		{purpose: "forgot_password", wantSubject: "OTPGate - Reset Your Password", wantAction: "reset your password"},
		{purpose: "LOGIN_VERIFICATION", wantSubject: "OTPGate - Login Verification Code", wantAction: "complete your login"},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			// Arrange
			f := newFixture(t)

			// Act
			err := f.uc.SendOTP(context.Background(), SendOTPInput{
				Recipient:  "asha@example.com",
				Channel:    "EMAIL",
				Purpose:    tt.purpose,
				Code:       "482913",
				TTLSeconds: 300,
			})

			// Assert
			require.NoError(t, err)
			require.Len(t, f.email.sent, 1)
			got := f.email.sent[0]
			assert.Equal(t, "asha@example.com", got.to)
			assert.Equal(t, tt.wantSubject, got.subject)
			assert.Contains(t, got.body, "482913")
			assert.Contains(t, got.body, tt.wantAction)
			assert.Contains(t, got.body, "5 minutes")
			assert.Contains(t, got.body, "&copy; 2026 OTPGate")
			assert.Empty(t, f.sms.sent)
		})
	}
}

func TestSendOTP_SMSText(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	err := f.uc.SendOTP(context.Background(), SendOTPInput{
		Recipient:  "9876543210",
		Channel:    "sms",
		Purpose:    "REGISTRATION",
		Code:       "482913",
		TTLSeconds: 600,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, "9876543210", f.sms.sent[0].to)
	assert.Equal(t,
		"OTPGate: Your OTP to verify your mobile number is 482913. Valid for 10 minutes. Do not share this code.",
		f.sms.sent[0].body)
}

func TestSendOTP_RecordsDeliveryWithoutCode(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	err := f.uc.SendOTP(context.Background(), SendOTPInput{
		Recipient: "asha@example.com", Channel: "EMAIL", Purpose: "REGISTRATION", Code: "482913",
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, f.db.created, 1)
	assert.Equal(t, entity.CreateDelivery{
		ID:              "0190f0aa-0000-7000-8000-0000000000d1",
		Channel:         entity.ChannelEmail,
		Kind:            entity.KindOTP,
		Purpose:         "REGISTRATION",
		RecipientMasked: "as***@example.com",
		Status:          entity.DeliveryStatusQueued,
	}, f.db.created[0])
	require.Len(t, f.db.updated, 1)
	assert.Equal(t, entity.DeliveryStatusSent, f.db.updated[0].Status)
	assert.Empty(t, f.db.updated[0].Error)
	assert.NotContains(t, f.db.updated[0].ProviderResponse, "code")
}

func TestSendOTP_ProviderFailure(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.sms.err = errors.New("gateway answered 502")

	// Act
	err := f.uc.SendOTP(context.Background(), SendOTPInput{
		Recipient: "9876543210", Channel: "SMS", Purpose: "FORGOT_PASSWORD", Code: "482913",
	})

	// Assert
	assert.ErrorIs(t, err, ErrDelivery)
	require.Len(t, f.db.updated, 1)
	assert.Equal(t, entity.DeliveryStatusFailed, f.db.updated[0].Status)
	assert.Equal(t, "gateway answered 502", f.db.updated[0].Error)
	assert.Equal(t, 200, f.db.updated[0].ProviderResponse.GetInt("status_code"))
}

func TestSendOTP_AuditFailureStillSends(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.db.createErr = errors.New("db down")

	// Act
	err := f.uc.SendOTP(context.Background(), SendOTPInput{
		Recipient: "asha@example.com", Channel: "EMAIL", Purpose: "REGISTRATION", Code: "482913",
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, f.email.sent, 1)
	assert.Empty(t, f.db.updated)
}

func TestSendOTP_InvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		in         SendOTPInput
		wantStatus int
	}{
		{
			name:       "missing code",
			in:         SendOTPInput{Recipient: "asha@example.com", Channel: "EMAIL", Purpose: "REGISTRATION"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown channel",
			in:         SendOTPInput{Recipient: "asha@example.com", Channel: "PUSH", Purpose: "REGISTRATION", Code: "482913"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)

			// Act
			err := f.uc.SendOTP(context.Background(), tt.in)

			// Assert
			var gerr *goerror.Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.wantStatus, gerr.StatusCode())
			assert.Empty(t, f.db.created)
		})
	}
}

func TestSendWelcome(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ctx := context.Background()

	// Act
	errEmail := f.uc.SendWelcome(ctx, SendWelcomeInput{UserID: 42, Recipient: "asha@example.com", Channel: "EMAIL", DisplayName: "Asha"})
	errSMS := f.uc.SendWelcome(ctx, SendWelcomeInput{UserID: 42, Recipient: "9876543210", Channel: "SMS", DisplayName: "Asha"})

	// Assert
	require.NoError(t, errEmail)
	require.NoError(t, errSMS)

	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "Welcome to OTPGate", f.email.sent[0].subject)
	assert.True(t, strings.Contains(f.email.sent[0].body, "Welcome to OTPGate, Asha!"))

	require.Len(t, f.sms.sent, 1)
	assert.Equal(t,
		"Welcome to OTPGate, Asha! Your account has been successfully verified. Thank you for joining us!",
		f.sms.sent[0].body)

	require.Len(t, f.db.created, 2)
	assert.Equal(t, entity.KindWelcome, f.db.created[1].Kind)
	assert.Equal(t, "******3210", f.db.created[1].RecipientMasked)
}

func TestSendWelcome_EscapesName(t *testing.T) {
	f := newFixture(t)

	err := f.uc.SendWelcome(context.Background(), SendWelcomeInput{
		UserID: 42, Recipient: "asha@example.com", Channel: "EMAIL", DisplayName: "<b>Asha</b>",
	})

	require.NoError(t, err)
	assert.Contains(t, f.email.sent[0].body, "&lt;b&gt;Asha&lt;/b&gt;")
}
