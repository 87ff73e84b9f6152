package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	mu       sync.Mutex
	otps     []usecase.SendOTPInput
	welcomes []usecase.SendWelcomeInput
	cIDs     []string
	err      error
}

func (f *fakeUC) SendOTP(ctx context.Context, in usecase.SendOTPInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps = append(f.otps, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeUC) SendWelcome(ctx context.Context, in usecase.SendWelcomeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeUC) otpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.otps)
}

type staticUUID string

func (s staticUUID) Generate() string { return string(s) }

type fakeMessage struct {
	id      string
	topic   string
	body    []byte
	headers map[string]string
}

func (m fakeMessage) ID() string               { return m.id }
func (m fakeMessage) Topic() string            { return m.topic }
func (m fakeMessage) Key() []byte              { return nil }
func (m fakeMessage) Body() []byte             { return m.body }
func (m fakeMessage) Header(key string) string { return m.headers[key] }
func (m fakeMessage) Timestamp() time.Time     { return time.Time{} }

var otpPayload = event.OTPIssuedMessage{
	ID:         "0190f0aa-0000-7000-8000-000000000001",
	Identifier: "asha@example.com",
	Channel:    "EMAIL",
	Purpose:    "REGISTRATION",
	Code:       "482913",
	TTLSeconds: 300,
}

func newHandler(t *testing.T, f *fakeUC) *MQHandler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &MQHandler{
		uc:    f,
		idemp: idempotency.New(client),
		uuid:  staticUUID("generated-cid"),
		ins:   instrument.NewNoop(),
	}
}

func otpMessage(t *testing.T, id string, headers map[string]string) fakeMessage {
	t.Helper()
	body, err := json.Marshal(otpPayload)
	require.NoError(t, err)
	return fakeMessage{id: id, topic: event.OTPIssuedDestination, body: body, headers: headers}
}

func TestGatewayConvertsMessages(t *testing.T) {
	// Arrange
	f := &fakeUC{}
	g := NewGateway(f)

	// Act
	errOTP := g.SendOTP(context.Background(), otpPayload)
	errWelcome := g.SendWelcome(context.Background(), event.AccountActivatedMessage{
		UserID:      1849205713,
		Channel:     "SMS",
		Recipient:   "9876543210",
		DisplayName: "Asha",
	})

	// Assert
	require.NoError(t, errOTP)
	require.NoError(t, errWelcome)
	assert.Equal(t, []usecase.SendOTPInput{{
		ID:         otpPayload.ID,
		Recipient:  "asha@example.com",
		Channel:    "EMAIL",
		Purpose:    "REGISTRATION",
		Code:       "482913",
		TTLSeconds: 300,
	}}, f.otps)
	assert.Equal(t, []usecase.SendWelcomeInput{{
		UserID:      1849205713,
		Recipient:   "9876543210",
		Channel:     "SMS",
		DisplayName: "Asha",
	}}, f.welcomes)
}

func TestOTPIssuedNotificationDeduplicates(t *testing.T) {
	// Arrange
	f := &fakeUC{}
	h := newHandler(t, f)
	ctx := context.Background()

	// Act
	first := h.OTPIssuedNotification(ctx, otpMessage(t, "1", map[string]string{"cID": "cid-from-identity"}))
	redelivered := h.OTPIssuedNotification(ctx, otpMessage(t, "2", nil))

	// Assert
	require.NoError(t, first)
	require.NoError(t, redelivered)
	assert.Equal(t, 1, f.otpCount())
	assert.Equal(t, []string{"cid-from-identity"}, f.cIDs)
}

func TestOTPIssuedNotificationGeneratesCorrelationID(t *testing.T) {
	f := &fakeUC{}
	h := newHandler(t, f)

	err := h.OTPIssuedNotification(context.Background(), otpMessage(t, "1", nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"generated-cid"}, f.cIDs)
}

func TestOTPIssuedNotificationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		ucErr     error
		wantErr   bool
		wantCalls int
	}{
		{name: "malformed body is dropped", body: []byte("{"), wantCalls: 0},
		{
			name:      "rejected input is dropped",
			ucErr:     goerror.NewInvalidInput(errors.New("recipient is required")),
			wantCalls: 1,
		},
		{
			name:      "delivery failure is nacked",
			ucErr:     errors.Join(usecase.ErrDelivery, errors.New("smtp: 421")),
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := &fakeUC{err: tt.ucErr}
			h := newHandler(t, f)
			msg := otpMessage(t, "1", nil)
			if tt.body != nil {
				msg.body = tt.body
			}

			// Act
			err := h.OTPIssuedNotification(context.Background(), msg)

			// Assert
			if tt.wantErr {
				assert.ErrorIs(t, err, usecase.ErrDelivery)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, f.otpCount())
		})
	}
}

func TestOTPIssuedNotificationRetriesAfterFailure(t *testing.T) {
	// Arrange
	f := &fakeUC{err: usecase.ErrDelivery}
	h := newHandler(t, f)
	ctx := context.Background()

	// Act
	failed := h.OTPIssuedNotification(ctx, otpMessage(t, "1", nil))
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	retried := h.OTPIssuedNotification(ctx, otpMessage(t, "1", nil))

	// Assert
	assert.Error(t, failed)
	assert.NoError(t, retried)
	assert.Equal(t, 2, f.otpCount())
}

func TestAccountActivatedNotificationOncePerChannel(t *testing.T) {
	// Arrange
	f := &fakeUC{}
	h := newHandler(t, f)
	ctx := context.Background()
	msg := func(channel string) fakeMessage {
		body, _ := json.Marshal(event.AccountActivatedMessage{UserID: 7, Channel: channel, Recipient: "r", DisplayName: "Asha"})
		return fakeMessage{topic: event.AccountActivatedDestination, body: body}
	}

	// Act
	require.NoError(t, h.AccountActivatedNotification(ctx, msg("EMAIL")))
	require.NoError(t, h.AccountActivatedNotification(ctx, msg("SMS")))
	require.NoError(t, h.AccountActivatedNotification(ctx, msg("EMAIL")))

	// Assert
	require.Len(t, f.welcomes, 2)
	assert.Equal(t, "EMAIL", f.welcomes[0].Channel)
	assert.Equal(t, "SMS", f.welcomes[1].Channel)
}

func TestRegisterMQConsumer(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: "otp_issued_notification"
    consumer_concurrency: 2
`))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := messaging.NewMemory(messaging.MemoryConfig{})
	routine := goroutine.NewManager(4)
	f := &fakeUC{}
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	started := RegisterMQConsumer(ctx, cfg, routine, broker, idempotency.New(client),
		staticUUID("generated-cid"), f, instrument.NewNoop())

	body, err := json.Marshal(otpPayload)
	require.NoError(t, err)

	// publishes before the group subscribes are dropped, so keep publishing
	assert.Eventually(t, func() bool {
		_ = broker.Publish(ctx, event.OTPIssuedDestination, messaging.OutgoingMessage{Body: body})
		return f.otpCount() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	_ = routine.Wait()

	// Assert
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, f.otpCount())
}
