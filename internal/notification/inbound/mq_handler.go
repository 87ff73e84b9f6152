package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const (
	keyOfCorrelationID string = "cID"
	dedupeTTL                 = 24 * time.Hour
	dedupeLock                = time.Minute
)

type MQHandler struct {
	uc    uc
	idemp idempotency.Idempotency
	uuid  uid.StringID
	ins   instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// once runs fn at most once per message. Redeliveries of a completed message
// are acked, and a failed attempt releases the key so the broker may retry.
func (h *MQHandler) once(ctx context.Context, key string, fn func(context.Context) error) error {
	err := h.idemp.Exec(ctx, "notification:"+key, fn,
		idempotency.WithLockDuration(dedupeLock),
		idempotency.WithStateTTL(dedupeTTL),
		idempotency.WithReleaseOnError(),
		idempotency.WithSkipCompleted(),
	)
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.InfoContext(ctx, "message is being handled by another consumer", "key", key)
		return nil
	}
	return err
}

// dropInvalid acks payloads the usecase rejects; redelivering them cannot help.
func dropInvalid(ctx context.Context, err error) error {
	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.StatusCode() < 500 {
		slog.ErrorContext(ctx, "dropping message rejected by usecase", "error", err)
		return nil
	}
	return err
}

// dedupeKey prefers the payload identity: broker message IDs are not stable
// across every driver (the memory broker restarts its sequence).
func dedupeKey(msg messaging.Message, identity string) string {
	if identity != "" {
		return msg.Topic() + ":" + identity
	}
	return msg.Topic() + ":" + msg.ID()
}

func (h *MQHandler) OTPIssuedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPIssuedNotification")
	defer span.End()

	// the body carries a plain code, so it is never logged
	slog.InfoContext(ctx, "consume: otp issued notification", "msg_id", msg.ID())

	var payload event.OTPIssuedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp issued notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	return h.once(ctx, dedupeKey(msg, payload.ID), func(ctx context.Context) error {
		if err := h.uc.SendOTP(ctx, otpInput(payload)); err != nil {
			slog.ErrorContext(ctx, "failed to consume otp issued", "msg_id", msg.ID(), "channel", payload.Channel, "error", err)
			return dropInvalid(ctx, err)
		}
		return nil
	})
}

func (h *MQHandler) AccountActivatedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccountActivatedNotification")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: account activated notification", "msg_id", msg.ID())

	var payload event.AccountActivatedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of account activated notification", "msg_body", string(body), "error", err)
		return nil
	}

	identity := strconv.FormatInt(payload.UserID, 10) + ":" + payload.Channel
	return h.once(ctx, dedupeKey(msg, identity), func(ctx context.Context) error {
		if err := h.uc.SendWelcome(ctx, welcomeInput(payload)); err != nil {
			slog.ErrorContext(ctx, "failed to consume account activated", "msg_id", msg.ID(), "user_id", payload.UserID, "error", err)
			return dropInvalid(ctx, err)
		}
		return nil
	})
}
