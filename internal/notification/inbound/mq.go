package inbound

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type consumer struct {
	name    string // also the consumer group on every driver
	topic   string // destination where publisher sent message
	handler messaging.Handler
}

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	idemp idempotency.Idempotency,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, idemp: idemp, uuid: uuid, ins: ins}

	consumers := []consumer{
		{
			name:    event.OTPIssuedConsumerNotification,
			topic:   event.OTPIssuedDestination,
			handler: mqHandler.OTPIssuedNotification,
		},
		{
			name:    event.AccountActivatedConsumerNotification,
			topic:   event.AccountActivatedDestination,
			handler: mqHandler.AccountActivatedNotification,
		},
	}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")

	started := 0
	for _, c := range lo.Filter(consumers, func(c consumer, _ int) bool { return lo.Contains(enabled, c.name) }) {
		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "Running job for handling consumer", "consumer", c.name)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.name),
				messaging.WithConcurrency(concurrency),
			)
		})
		if ok {
			started++
		}
	}

	return started
}
