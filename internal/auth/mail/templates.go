// Package mail renders the outbound messages the auth flows send:
// verification codes, password reset links and the post-signup welcome.
package mail

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// VerificationCode renders the body sent alongside a numeric code.
// Purpose-specific wording is handled inside the template.
type VerificationCode struct {
	Name          string
	Code          string
	ExpiryMinutes int
	Purpose       string
}

func RenderVerificationCode(data VerificationCode) (subject, body string, err error) {
	switch data.Purpose {
	case "signup":
		subject = "Verify your email address"
	case "email_change":
		subject = "Confirm your new email address"
	default:
		subject = "Your verification code"
	}
	body, err = render("verification_code.tmpl", data)
	return subject, body, err
}

// PasswordReset renders the body with the single-use reset link.
type PasswordReset struct {
	Name          string
	ResetURL      string
	ExpiryMinutes int
}

func RenderPasswordReset(data PasswordReset) (subject, body string, err error) {
	body, err = render("password_reset.tmpl", data)
	return "Reset your password", body, err
}

// Welcome renders the message sent once a signup is confirmed.
type Welcome struct {
	Name string
}

func RenderWelcome(data Welcome) (subject, body string, err error) {
	body, err = render("welcome.tmpl", data)
	return "Welcome aboard", body, err
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
