package service

import "errors"

// Sentinel errors returned by the auth services. Handlers map these to
// HTTP statuses; anything else surfaces as a 500.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidOtp         = errors.New("invalid_otp")
	ErrNoActiveFlow       = errors.New("no_active_verification")
	ErrResendLimit        = errors.New("resend_limit_reached")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
	ErrEmailUpdateFailed  = errors.New("email_update_failed")
	ErrMailDelivery       = errors.New("mail_delivery_failed")
	ErrOtpGeneration      = errors.New("otp_generation_failed")
)
