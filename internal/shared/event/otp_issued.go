package event

const OTPIssuedDestination string = "identity.otp.issued"
const OTPIssuedConsumerNotification string = "otp_issued_notification"

// OTPIssuedMessage carries a plain code, so the topic must stay on a private broker.
type OTPIssuedMessage struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	Purpose    string `json:"purpose"`
	Code       string `json:"code"`
	TTLSeconds int    `json:"ttl_seconds"`
}
