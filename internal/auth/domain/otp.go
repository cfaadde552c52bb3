package domain

import "time"

// OTP purposes. A code minted for one purpose never satisfies a check
// for another.
const (
	OtpPurposeSignup      = "signup"
	OtpPurposeResetPass   = "reset_password"
	OtpPurposeEmailChange = "email_change"
)

// ValidOtpPurpose reports whether p is one of the known purposes.
func ValidOtpPurpose(p string) bool {
	switch p {
	case OtpPurposeSignup, OtpPurposeResetPass, OtpPurposeEmailChange:
		return true
	}
	return false
}

// Otp is a short numeric challenge bound to a user, email and purpose.
type Otp struct {
	ID        string
	UserID    string
	Email     string
	Code      string
	Purpose   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (o Otp) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
