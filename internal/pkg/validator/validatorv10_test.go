package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerInput struct {
	Username     string `validate:"required,username"`
	Email        string `validate:"required,email"`
	Password     string `validate:"required,password"`
	MobileNumber string `validate:"required,mobile"`
}

type verifyInput struct {
	Identifier string `validate:"required"`
	Code       string `validate:"required,otp_code"`
}

func TestV10ValidatorCustomRules(t *testing.T) {
	// Arrange
	v, err := NewV10Validator()
	require.NoError(t, err)

	// Act
	err = v.Validate(registerInput{
		Username:     "a",
		Email:        "not-an-email",
		Password:     "short",
		MobileNumber: "12ab",
	})

	// Assert
	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Password must be 8-72 characters", verr.Values()["password"])
	assert.Contains(t, verr.Values(), "mobile_number")
	assert.Contains(t, verr.Values(), "username")
	assert.Contains(t, verr.Values(), "email")
}

func TestV10ValidatorAcceptsValidInput(t *testing.T) {
	// Arrange
	v, err := NewV10Validator()
	require.NoError(t, err)

	// Act & Assert
	assert.NoError(t, v.Validate(registerInput{
		Username:     "john.doe",
		Email:        "john@example.com",
		Password:     "Secret123!",
		MobileNumber: "9876543210",
	}))
	assert.NoError(t, v.Validate(verifyInput{Identifier: "john@example.com", Code: "123456"}))
}

func TestV10ValidatorOTPCode(t *testing.T) {
	// Arrange
	v, err := NewV10Validator()
	require.NoError(t, err)

	// Act
	err = v.Validate(verifyInput{Identifier: "x", Code: "12 34"})

	// Assert
	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Code must be 4-10 letters or digits", verr["code"])
}
