package entity

import (
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
)

// OTPDelivery is one code to hand to a provider. Code is never persisted.
type OTPDelivery struct {
	ID        string
	Recipient string
	Channel   Channel
	Purpose   Purpose
	Code      string
	TTL       time.Duration
}

type WelcomeDelivery struct {
	UserID      int64
	Recipient   string
	Channel     Channel
	DisplayName string
}

type CreateDelivery struct {
	ID              string
	Channel         Channel
	Kind            Kind
	Purpose         string
	RecipientMasked string
	Status          DeliveryStatus
}

type UpdateDelivery struct {
	ID               string
	Status           DeliveryStatus
	ProviderResponse valueobject.JSONMap
	Error            string
}

// MaskRecipient keeps enough of an address or number to tell deliveries
// apart in logs: "as***@example.com", "******3210".
func MaskRecipient(ch Channel, recipient string) string {
	recipient = strings.TrimSpace(recipient)

	if ch == ChannelEmail {
		local, domain, ok := strings.Cut(recipient, "@")
		if !ok {
			return maskTail(recipient, 0)
		}
		keep := min(2, len(local))
		return local[:keep] + strings.Repeat("*", 3) + "@" + domain
	}

	return maskTail(recipient, 4)
}

func maskTail(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}
