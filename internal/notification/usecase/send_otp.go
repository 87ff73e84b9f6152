package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
)

const defaultOTPTTL = 5 * time.Minute

type SendOTPInput struct {
	ID         string
	Recipient  string `validate:"required,max=255"`
	Channel    string `validate:"required"`
	Purpose    string `validate:"required"`
	Code       string `validate:"required,otp_code"`
	TTLSeconds int    `validate:"gte=0"`
}

// SendOTP renders the code for its channel and purpose and hands it to the
// provider. The code only lives in the rendered message.
func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) error {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ch := entity.ChannelFromString(in.Channel)
	purpose := entity.PurposeFromString(in.Purpose)
	ttl := time.Duration(in.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	minutes := int(ttl.Round(time.Minute) / time.Minute)

	app := s.appName()
	d := delivery{channel: ch, kind: entity.KindOTP, purpose: purpose.String(), recipient: in.Recipient}

	switch ch {
	case entity.ChannelEmail:
		data := s.baseEmailTemplateData()
		data["action"] = action(ch, purpose)
		data["code"] = in.Code
		data["ttl_minutes"] = minutes

		body, err := s.renderEmail("otp", data)
		if err != nil {
			return goerror.NewServer(err)
		}

		d.send = func(ctx context.Context) (valueobject.JSONMap, error) {
			return s.repoEmail.Send(ctx, in.Recipient, emailSubject(app, purpose), body)
		}
	case entity.ChannelSMS:
		text := otpSMS(app, purpose, in.Code, minutes)
		d.send = func(ctx context.Context) (valueobject.JSONMap, error) {
			return s.repoSMS.Send(ctx, in.Recipient, text)
		}
	default:
		return goerror.NewBusiness("Unsupported notification channel", goerror.CodeBadRequest)
	}

	return s.deliver(ctx, d)
}
