package event

const AccountActivatedDestination string = "identity.account.activated"
const AccountActivatedConsumerNotification string = "account_activated_notification"

// AccountActivatedMessage asks for one welcome on one channel.
type AccountActivatedMessage struct {
	UserID      int64  `json:"user_id,string"`
	Channel     string `json:"channel"`
	Recipient   string `json:"recipient"`
	DisplayName string `json:"display_name"`
}
