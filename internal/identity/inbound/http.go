package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	VerifyEmail(ctx context.Context, in usecase.VerifyEmailInput) (*usecase.VerifyOutput, error)
	VerifyMobile(ctx context.Context, in usecase.VerifyMobileInput) (*usecase.VerifyOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	LoginVerify(ctx context.Context, in usecase.LoginVerifyInput) (*usecase.LoginOutput, error)

	PasswordForgot(ctx context.Context, in usecase.PasswordForgotInput) error
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error
	PasswordChange(ctx context.Context, in usecase.PasswordChangeInput) error

	ResendOTP(ctx context.Context, in usecase.ResendOTPInput) error
	OTPStatus(ctx context.Context, in usecase.OTPStatusInput) (*entity.OTPStatus, error)
	SweepOTP(ctx context.Context) (*usecase.SweepOTPOutput, error)
}

// RegisterHTTPEndpoint mounts the identity routes. The limiter guards the
// public routes that send a code.
func RegisterHTTPEndpoint(r *router.Router, uc uc, limiter *router.RateLimiter) {
	end := &HTTPEndpoint{uc: uc}
	limited := limiter.Middleware()

	// Registration & verification
	r.POST("/api/v1/identity/register", end.Register, limited)
	r.POST("/api/v1/identity/verify-email", end.VerifyEmail)
	r.POST("/api/v1/identity/verify-mobile", end.VerifyMobile)

	// Login
	r.POST("/api/v1/identity/login", end.Login)
	r.POST("/api/v1/identity/login/verify", end.LoginVerify)

	// Password Management
	r.POST("/api/v1/identity/password/forgot", end.PasswordForgot, limited)
	r.POST("/api/v1/identity/password/reset", end.PasswordReset)
	r.POST("/api/v1/identity/password/change", end.PasswordChange) // need authenticated

	// OTP
	r.POST("/api/v1/identity/otp/resend", end.ResendOTP, limited)
	r.GET("/api/v1/identity/otp/status", end.OTPStatus) // need authenticated & authorization
	r.POST("/api/v1/identity/otp/sweep", end.SweepOTP)  // need authenticated & authorization
}
