package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/notification/inbound"
	"github.com/shandysiswandi/otpgate/internal/notification/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/notification/outbound/email"
	"github.com/shandysiswandi/otpgate/internal/notification/outbound/sms"
	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	pkgsms "github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type Dependency struct {
	Ctx         context.Context            `validate:"required"`
	DBConn      *pgxpool.Pool              `validate:"required"`
	Messaging   messaging.Messaging        // consumers run only when set
	Idempotency idempotency.Idempotency    `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Mail        mail.Mail                  `validate:"required"`
	SMS         pkgsms.SMS                 `validate:"required"`
}

// New returns the in-process gateway other modules use for direct delivery.
func New(dep Dependency) (*inbound.Gateway, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	uc := usecase.NewNotification(usecase.Dependency{
		RepoDB:     db.NewDB(dep.DBConn, dep.Instrument),
		RepoEmail:  email.New(dep.Mail, dep.Config.GetString("mail.driver"), dep.Instrument),
		RepoSMS:    sms.New(dep.SMS, dep.Config.GetString("sms.driver"), dep.Instrument),
		Config:     dep.Config,
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	if dep.Messaging != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging,
			dep.Idempotency, dep.UUID, uc, dep.Instrument)
	}

	return inbound.NewGateway(uc), nil
}
