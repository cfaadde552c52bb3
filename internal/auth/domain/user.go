package domain

import "time"

type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string // argon2 encoded
	ProfilePicURL string

	// TokenVersion is baked into every JWT issued for the user. Bumping
	// it invalidates all outstanding tokens at once.
	TokenVersion int

	// ResetToken is the single-use password reset credential (nullable).
	ResetToken          *string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	LastLogin *time.Time
}

// FullName joins the user's first and last name for display and mail.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
