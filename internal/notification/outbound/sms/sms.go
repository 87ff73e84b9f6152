package sms

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/codes"
)

// SMS sends one text through the configured gateway.
type SMS struct {
	client   sms.SMS
	provider string
	ins      instrument.Instrumentation
}

func New(client sms.SMS, provider string, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, provider: provider, ins: ins}
}

func (s *SMS) Send(ctx context.Context, to, body string) (valueobject.JSONMap, error) {
	ctx, span := s.ins.Tracer("notification.outbound.sms").Start(ctx, "Send")
	defer span.End()

	res, err := s.client.Send(ctx, sms.Message{To: to, Body: body})
	resp := valueobject.JSONMap{
		"provider":    s.provider,
		"status_code": res.StatusCode,
		"response":    res.Response,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	return resp, nil
}
