package usecase

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const defaultAppName = "OTPGate"

// ErrDelivery means the provider did not accept the message.
var ErrDelivery = errors.New("notification: delivery failed")

type repoDB interface {
	CreateDelivery(ctx context.Context, d entity.CreateDelivery) error
	UpdateDeliveryStatus(ctx context.Context, u entity.UpdateDelivery) error
}

type repoEmail interface {
	Send(ctx context.Context, to, subject, htmlBody string) (valueobject.JSONMap, error)
}

type repoSMS interface {
	Send(ctx context.Context, to, body string) (valueobject.JSONMap, error)
}

type Usecase struct {
	repoDB    repoDB
	repoEmail repoEmail
	repoSMS   repoSMS
	cfg       config.Config
	uuid      uid.StringID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
	templates *template.Template
	delivered metric.Int64Counter
}

type Dependency struct {
	RepoDB     repoDB
	RepoEmail  repoEmail
	RepoSMS    repoSMS
	Config     config.Config
	UUID       uid.StringID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	counter, err := dep.Instrument.Meter("notification.usecase").Int64Counter(
		"notification.delivery",
		metric.WithDescription("Number of notification deliveries by outcome"),
	)
	if err != nil {
		slog.Warn("failed to create notification.delivery counter", "error", err)
		counter, _ = metricnoop.Meter{}.Int64Counter("notification.delivery")
	}

	return &Usecase{
		repoDB:    dep.RepoDB,
		repoEmail: dep.RepoEmail,
		repoSMS:   dep.RepoSMS,
		cfg:       dep.Config,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		templates: template.Must(template.New("email").Option("missingkey=zero").Parse(emailTemplates)),
		delivered: counter,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) appName() string {
	if name := s.cfg.GetString("app.name"); name != "" {
		return name
	}
	return defaultAppName
}

func (s *Usecase) renderEmail(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Usecase) baseEmailTemplateData() map[string]any {
	return map[string]any{
		"app_name":      s.appName(),
		"support_email": s.cfg.GetString("modules.notification.support_email"),
		"year":          s.clock.Now().Format("2006"),
	}
}

type delivery struct {
	channel   entity.Channel
	kind      entity.Kind
	purpose   string
	recipient string
	send      func(ctx context.Context) (valueobject.JSONMap, error)
}

// deliver records a queued row, runs the provider call and settles the row.
// A failing audit write is logged; it never blocks the message itself.
func (s *Usecase) deliver(ctx context.Context, d delivery) error {
	id := s.uuid.Generate()
	masked := entity.MaskRecipient(d.channel, d.recipient)

	recorded := true
	if err := s.repoDB.CreateDelivery(ctx, entity.CreateDelivery{
		ID:              id,
		Channel:         d.channel,
		Kind:            d.kind,
		Purpose:         d.purpose,
		RecipientMasked: masked,
		Status:          entity.DeliveryStatusQueued,
	}); err != nil {
		recorded = false
		slog.ErrorContext(ctx, "failed to repo create delivery", "delivery_id", id, "recipient", masked, "error", err)
	}

	resp, sendErr := d.send(ctx)

	up := entity.UpdateDelivery{ID: id, Status: entity.DeliveryStatusSent, ProviderResponse: resp}
	if sendErr != nil {
		up.Status = entity.DeliveryStatusFailed
		up.Error = sendErr.Error()
	}
	if up.ProviderResponse == nil {
		up.ProviderResponse = valueobject.JSONMap{}
	}

	if recorded {
		if err := s.repoDB.UpdateDeliveryStatus(context.WithoutCancel(ctx), up); err != nil {
			slog.ErrorContext(ctx, "failed to repo update delivery status", "delivery_id", id, "status", up.Status.String(), "error", err)
		}
	}

	s.delivered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", d.channel.String()),
		attribute.String("kind", d.kind.String()),
		attribute.String("status", up.Status.String()),
	))

	if sendErr != nil {
		slog.ErrorContext(ctx, "failed to send notification", "delivery_id", id, "channel", d.channel.String(),
			"kind", d.kind.String(), "recipient", masked, "error", sendErr)
		return errors.Join(ErrDelivery, sendErr)
	}

	slog.InfoContext(ctx, "notification sent", "delivery_id", id, "channel", d.channel.String(), "kind", d.kind.String(), "recipient", masked)
	return nil
}
