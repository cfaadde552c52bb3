package http

import (
	"net/http"
	"strings"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/pkg/httpx"
)

// EmailChangeHandler serves the two-step email change flow.
type EmailChangeHandler struct {
	Auth *service.AuthService
}

type emailChangeRequest struct {
	NewEmail        string `json:"new_email"`
	CurrentPassword string `json:"current_password"`
}

func (h *EmailChangeHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req emailChangeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.NewEmail = strings.TrimSpace(strings.ToLower(req.NewEmail))
	if req.NewEmail == "" || !strings.Contains(req.NewEmail, "@") {
		writeBadRequest(w, "A valid new_email is required.")
		return
	}
	if req.CurrentPassword == "" {
		writeBadRequest(w, "current_password is required.")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.RequestEmailChange(r.Context(), userID, req.NewEmail, req.CurrentPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "verification_sent"})
}

// Resend mails a fresh code for the in-flight change, within the
// flow's resend budget.
func (h *EmailChangeHandler) Resend(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.ResendEmailChangeCode(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "verification_resent"})
}

type emailConfirmRequest struct {
	NewEmail string `json:"new_email"`
	Code     string `json:"code"`
}

func (h *EmailChangeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req emailConfirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.NewEmail = strings.TrimSpace(strings.ToLower(req.NewEmail))
	req.Code = strings.TrimSpace(req.Code)
	if req.NewEmail == "" || req.Code == "" {
		writeBadRequest(w, "new_email and code are required.")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.ConfirmEmailChange(r.Context(), userID, req.NewEmail, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "email_changed"})
}
