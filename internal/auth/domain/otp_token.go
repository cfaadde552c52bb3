package domain

import "time"

// PendingSignup carries the profile data captured at signup time, held
// until the verification code is confirmed and the account is created.
type PendingSignup struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"password_hash"`
}

// OtpToken tracks an in-flight verification flow: which code was sent,
// to whom, how many times it has been resent, and any payload to apply
// once the code is confirmed.
type OtpToken struct {
	ID     string
	UserID string
	Email  string

	// NewEmail is set for email-change flows only.
	NewEmail string

	Code    string
	Purpose string

	ResendCount int

	// Pending is present for signup flows only.
	Pending *PendingSignup

	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t OtpToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// DeliveryEmail is the address the current code goes to: the target
// address for an email change, the signup address otherwise.
func (t OtpToken) DeliveryEmail() string {
	if t.NewEmail != "" {
		return t.NewEmail
	}
	return t.Email
}
