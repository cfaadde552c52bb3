package http

import (
	"errors"
	"net/http"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/pkg/httpx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognised is a 500 and gets logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token is invalid or expired.")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user_not_found", "No account found for that email.")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "An account with that email already exists.")
	case errors.Is(err, service.ErrInvalidOtp):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_otp", "Verification code is invalid or expired.")
	case errors.Is(err, service.ErrNoActiveFlow):
		httpx.WriteError(w, http.StatusNotFound, "no_active_verification", "No verification in progress for that email.")
	case errors.Is(err, service.ErrResendLimit):
		httpx.WriteError(w, http.StatusTooManyRequests, "resend_limit_reached", "Too many resend attempts. Start over.")
	case errors.Is(err, service.ErrInvalidResetToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_reset_token", "Reset link is invalid or expired.")
	case errors.Is(err, service.ErrEmailUpdateFailed):
		httpx.WriteError(w, http.StatusConflict, "email_update_failed", "The account's email changed while the code was in flight. Start over.")
	case errors.Is(err, service.ErrMailDelivery):
		httpx.WriteError(w, http.StatusBadGateway, "mail_delivery_failed", "Could not send email. Try again later.")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", desc)
}
