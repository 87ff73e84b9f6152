package email

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/codes"
)

// Mail sends one HTML email and reports what the provider said.
type Mail struct {
	client   mail.Mail
	provider string
	ins      instrument.Instrumentation
}

func New(client mail.Mail, provider string, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, provider: provider, ins: ins}
}

func (m *Mail) Send(ctx context.Context, to, subject, htmlBody string) (valueobject.JSONMap, error) {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "Send")
	defer span.End()

	resp := valueobject.JSONMap{"provider": m.provider}

	if err := m.client.Send(ctx, mail.Message{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: htmlBody,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp.Set("accepted", false)
		return resp, err
	}

	resp.Set("accepted", true)
	return resp, nil
}
