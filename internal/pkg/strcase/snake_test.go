package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Email":        "email",
		"MobileNumber": "mobile_number",
		"UserID":       "user_id",
		"HTTPServer":   "http_server",
		"OldPassword":  "old_password",
		"Otp2FA":       "otp2_fa",
	}

	for in, want := range tests {
		assert.Equal(t, want, ToLowerSnake(in), in)
	}
}
