package inbound

import (
	"net/http"
	"time"
)

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Password  string `json:"password"`
}

type RegisterResponse struct {
	UserID int64 `json:"user_id,string"`
}

func (RegisterResponse) Message() string {
	return "Registration successful. Please verify your email and mobile number."
}

func (RegisterResponse) StatusCode() int {
	return http.StatusCreated
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyMobileRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type VerifyResponse struct {
	Activated bool `json:"activated"`

	message string
}

func (r VerifyResponse) Message() string {
	return r.message
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginVerifyRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type LoginResponse struct {
	VerificationRequired bool   `json:"verification_required,omitempty"`
	AccessToken          string `json:"access_token,omitempty"`
	Username             string `json:"username,omitempty"`
	Email                string `json:"email,omitempty"`
}

func (r LoginResponse) Message() string {
	if r.VerificationRequired {
		return "Verification code sent to your registered email"
	}
	return "Login successful"
}

type PasswordForgotRequest struct {
	Email string `json:"email"`
}

type PasswordForgotResponse struct{}

func (PasswordForgotResponse) Message() string {
	return "If the account exists, an OTP has been sent to your registered email"
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type PasswordResetResponse struct{}

func (PasswordResetResponse) Message() string {
	return "Password reset successfully"
}

type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type PasswordChangeResponse struct{}

func (PasswordChangeResponse) Message() string {
	return "Password changed successfully"
}

type ResendOTPRequest struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	Purpose    string `json:"purpose"`
}

type ResendOTPResponse struct{}

func (ResendOTPResponse) Message() string {
	return "OTP resent successfully"
}

type OTPStatusResponse struct {
	Identifier string     `json:"identifier"`
	Channel    string     `json:"channel"`
	Purpose    string     `json:"purpose"`
	State      string     `json:"state"`
	Active     bool       `json:"active"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type SweepOTPResponse struct {
	Deleted int64 `json:"deleted"`
}

func (SweepOTPResponse) Message() string {
	return "Expired OTPs removed"
}
