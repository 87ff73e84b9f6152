package usecase

import (
	"fmt"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
)

const emailTemplates = `
{{define "otp"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background-color: #4CAF50; color: #fff; padding: 20px; text-align: center;">{{.app_name}}</h1>
    <h2>Hello!</h2>
    <p>You requested to {{.action}}. Please use the following One-Time Password (OTP):</p>
    <div style="border: 2px dashed #4CAF50; padding: 15px; text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 5px;">{{.code}}</div>
    <p>This OTP is valid for <strong>{{.ttl_minutes}} minutes</strong>. Please do not share this code with anyone.</p>
    <p>If you didn't request this, please ignore this email or contact {{if .support_email}}{{.support_email}}{{else}}our support team{{end}}.</p>
    <p style="font-size: 12px; color: #666;">This is an automated message, please do not reply to this email.<br>&copy; {{.year}} {{.app_name}}. All rights reserved.</p>
  </div>
</body>
</html>{{end}}
{{define "welcome"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Welcome to {{.app_name}}, {{.name}}!</h2>
    <p>Thank you for registering with us. Your account has been successfully verified.</p>
    <p>You can now log in and start using our services.</p>
    <p>Best regards,<br>The {{.app_name}} Team</p>
  </div>
</body>
</html>{{end}}
`

func emailSubject(app string, p entity.Purpose) string {
	switch p {
	case entity.PurposeRegistration:
		return app + " - Verify Your Email"
	case entity.PurposeForgotPassword:
		return app + " - Reset Your Password"
	case entity.PurposeLoginVerification:
		return app + " - Login Verification Code"
	default:
		return app + " - Verification Code"
	}
}

func action(ch entity.Channel, p entity.Purpose) string {
	switch p {
	case entity.PurposeRegistration:
		if ch == entity.ChannelSMS {
			return "verify your mobile number"
		}
		return "verify your email address"
	case entity.PurposeForgotPassword:
		return "reset your password"
	case entity.PurposeLoginVerification:
		return "complete your login"
	default:
		return "verify your account"
	}
}

func otpSMS(app string, p entity.Purpose, code string, ttlMinutes int) string {
	return fmt.Sprintf("%s: Your OTP to %s is %s. Valid for %d minutes. Do not share this code.",
		app, action(entity.ChannelSMS, p), code, ttlMinutes)
}

func welcomeSMS(app, name string) string {
	return fmt.Sprintf("Welcome to %s, %s! Your account has been successfully verified. Thank you for joining us!", app, name)
}
