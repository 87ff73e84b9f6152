package usecase

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
)

type SendWelcomeInput struct {
	UserID      int64  `validate:"required,gt=0"`
	Recipient   string `validate:"required,max=255"`
	Channel     string `validate:"required"`
	DisplayName string `validate:"required,max=100"`
}

// SendWelcome greets a newly activated account on one channel.
func (s *Usecase) SendWelcome(ctx context.Context, in SendWelcomeInput) error {
	ctx, span := s.startSpan(ctx, "SendWelcome")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ch := entity.ChannelFromString(in.Channel)
	app := s.appName()
	d := delivery{channel: ch, kind: entity.KindWelcome, recipient: in.Recipient}

	switch ch {
	case entity.ChannelEmail:
		data := s.baseEmailTemplateData()
		data["name"] = in.DisplayName

		body, err := s.renderEmail("welcome", data)
		if err != nil {
			return goerror.NewServer(err)
		}

		d.send = func(ctx context.Context) (valueobject.JSONMap, error) {
			return s.repoEmail.Send(ctx, in.Recipient, "Welcome to "+app, body)
		}
	case entity.ChannelSMS:
		text := welcomeSMS(app, in.DisplayName)
		d.send = func(ctx context.Context) (valueobject.JSONMap, error) {
			return s.repoSMS.Send(ctx, in.Recipient, text)
		}
	default:
		return goerror.NewBusiness("Unsupported notification channel", goerror.CodeBadRequest)
	}

	return s.deliver(ctx, d)
}
