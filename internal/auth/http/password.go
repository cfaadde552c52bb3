package http

import (
	"net/http"
	"strings"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/pkg/httpx"
)

// PasswordHandler serves the change and reset flows.
type PasswordHandler struct {
	Auth   *service.AuthService
	Secure bool
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Change swaps the password and hands back a fresh token pair; the
// version bump killed the pair the caller authenticated with.
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	if req.OldPassword == "" || len(req.NewPassword) < minPasswordLength {
		writeBadRequest(w, "old_password and a new password of at least 8 characters are required.")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	pair, err := h.Auth.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	setRefreshCookie(w, pair, h.Auth.Tokens.RefreshTTL, h.Secure)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeBadRequest(w, "email is required.")
		return
	}

	if err := h.Auth.StartPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "reset_sent"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Reset redeems the mailed link; the token alone identifies the account.
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || len(req.NewPassword) < minPasswordLength {
		writeBadRequest(w, "token and a new password of at least 8 characters are required.")
		return
	}

	if err := h.Auth.ConsumePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}
