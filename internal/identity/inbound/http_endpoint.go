package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration, login and OTP workflows.
type HTTPEndpoint struct {
	uc uc
}

// Register creates a disabled account and sends codes to its email and mobile.
// @Summary Register account
// @Description Creates an account that stays disabled until both the email and the mobile number are verified.
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} router.successResponse{data=RegisterResponse} "Account created"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Username, email or mobile number already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 503 {object} router.errorResponse "Failed to send OTP"
// @Router /api/v1/identity/register [post]
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  req.Password,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{UserID: resp.UserID}, nil
}

// VerifyEmail consumes the registration code sent by email.
// @Summary Verify email
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Email verification payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Email verified"
// @Failure 400 {object} router.errorResponse "Invalid or expired OTP"
// @Failure 404 {object} router.errorResponse "User not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/verify-email [post]
func (h *HTTPEndpoint) VerifyEmail(r *router.Request) (any, error) {
	var req VerifyEmailRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyEmail(r.Context(), usecase.VerifyEmailInput{
		Email: req.Email,
		OTP:   req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{Activated: resp.Activated, message: "Email verified successfully"}, nil
}

// VerifyMobile consumes the registration code sent by SMS.
// @Summary Verify mobile number
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body VerifyMobileRequest true "Mobile verification payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Mobile number verified"
// @Failure 400 {object} router.errorResponse "Invalid or expired OTP"
// @Failure 404 {object} router.errorResponse "User not found"
// @Router /api/v1/identity/verify-mobile [post]
func (h *HTTPEndpoint) VerifyMobile(r *router.Request) (any, error) {
	var req VerifyMobileRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyMobile(r.Context(), usecase.VerifyMobileInput{
		Mobile: req.Mobile,
		OTP:    req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{Activated: resp.Activated, message: "Mobile number verified successfully"}, nil
}

// Login authenticates a user by username or email.
// @Summary Authenticate user
// @Description Returns an access token, or asks for a login verification code when the device is not recognised.
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=LoginResponse} "Authentication result"
// @Failure 401 {object} router.errorResponse "Invalid username or password"
// @Failure 403 {object} router.errorResponse "Account not verified or locked"
// @Router /api/v1/identity/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IP:        r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return toLoginResponse(resp), nil
}

// LoginVerify completes a login that required a verification code.
// @Summary Complete login verification
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginVerifyRequest true "Login verification payload"
// @Success 200 {object} router.successResponse{data=LoginResponse} "Authentication result"
// @Failure 400 {object} router.errorResponse "Invalid or expired OTP"
// @Router /api/v1/identity/login/verify [post]
func (h *HTTPEndpoint) LoginVerify(r *router.Request) (any, error) {
	var req LoginVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.LoginVerify(r.Context(), usecase.LoginVerifyInput{
		Username:  req.Username,
		Password:  req.Password,
		OTP:       req.OTP,
		UserAgent: r.UserAgent(),
		IP:        r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return toLoginResponse(resp), nil
}

func toLoginResponse(resp *usecase.LoginOutput) LoginResponse {
	return LoginResponse{
		VerificationRequired: resp.VerificationRequired,
		AccessToken:          resp.AccessToken,
		Username:             resp.Username,
		Email:                resp.Email,
	}
}

// PasswordForgot sends a reset code when the email belongs to an account.
// @Summary Request password reset
// @Description Always answers with the same message so callers cannot probe for accounts.
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body PasswordForgotRequest true "Forgot password payload"
// @Success 200 {object} router.successResponse{data=PasswordForgotResponse} "Request accepted"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Router /api/v1/identity/password/forgot [post]
func (h *HTTPEndpoint) PasswordForgot(r *router.Request) (any, error) {
	var req PasswordForgotRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordForgot(r.Context(), usecase.PasswordForgotInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return PasswordForgotResponse{}, nil
}

// PasswordReset sets a new password with a forgot-password code.
// @Summary Reset password
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset password payload"
// @Success 200 {object} router.successResponse{data=PasswordResetResponse} "Password reset"
// @Failure 400 {object} router.errorResponse "Invalid or expired OTP"
// @Router /api/v1/identity/password/reset [post]
func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return PasswordResetResponse{}, nil
}

// PasswordChange updates the password of the authenticated user.
// @Summary Change password
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PasswordChangeRequest true "Change password payload"
// @Success 200 {object} router.successResponse{data=PasswordChangeResponse} "Password changed"
// @Failure 400 {object} router.errorResponse "Old password is incorrect"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/identity/password/change [post]
func (h *HTTPEndpoint) PasswordChange(r *router.Request) (any, error) {
	var req PasswordChangeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordChange(r.Context(), usecase.PasswordChangeInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return PasswordChangeResponse{}, nil
}

// ResendOTP issues a fresh code once the cooldown has passed.
// @Summary Resend OTP
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body ResendOTPRequest true "Resend payload"
// @Success 200 {object} router.successResponse{data=ResendOTPResponse} "OTP resent"
// @Failure 400 {object} router.errorResponse "Invalid OTP type or purpose"
// @Failure 429 {object} router.errorResponse "Please wait before requesting a new OTP"
// @Failure 503 {object} router.errorResponse "Failed to send OTP"
// @Router /api/v1/identity/otp/resend [post]
func (h *HTTPEndpoint) ResendOTP(r *router.Request) (any, error) {
	var req ResendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ResendOTP(r.Context(), usecase.ResendOTPInput{
		Identifier: req.Identifier,
		Channel:    req.Channel,
		Purpose:    req.Purpose,
	}); err != nil {
		return nil, err
	}

	return ResendOTPResponse{}, nil
}

// OTPStatus reports the state of the latest code for a tuple.
// @Summary OTP status
// @Tags Identity, OTP, Admin
// @Produce json
// @Security BearerAuth
// @Param identifier query string true "Email or mobile number"
// @Param channel query string true "EMAIL or SMS"
// @Param purpose query string true "REGISTRATION, FORGOT_PASSWORD or LOGIN_VERIFICATION"
// @Success 200 {object} router.successResponse{data=OTPStatusResponse} "OTP status"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Router /api/v1/identity/otp/status [get]
func (h *HTTPEndpoint) OTPStatus(r *router.Request) (any, error) {
	resp, err := h.uc.OTPStatus(r.Context(), usecase.OTPStatusInput{
		Identifier: r.GetQuery("identifier"),
		Channel:    r.GetQuery("channel"),
		Purpose:    r.GetQuery("purpose"),
	})
	if err != nil {
		return nil, err
	}

	return OTPStatusResponse{
		Identifier: resp.Tuple.Identifier,
		Channel:    resp.Tuple.Channel.String(),
		Purpose:    resp.Tuple.Purpose.String(),
		State:      resp.State.String(),
		Active:     resp.State == entity.OTPStateActive,
		CreatedAt:  resp.CreatedAt,
		ExpiresAt:  resp.ExpiresAt,
	}, nil
}

// SweepOTP deletes expired codes on demand.
// @Summary Sweep expired OTPs
// @Tags Identity, OTP, Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=SweepOTPResponse} "Sweep result"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Router /api/v1/identity/otp/sweep [post]
func (h *HTTPEndpoint) SweepOTP(r *router.Request) (any, error) {
	resp, err := h.uc.SweepOTP(r.Context())
	if err != nil {
		return nil, err
	}

	return SweepOTPResponse{Deleted: resp.Deleted}, nil
}
