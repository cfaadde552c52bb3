package http

import (
	"net/http"
	"strings"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/pkg/httpx"
)

const minPasswordLength = 8

// SignupHandler serves the two-step registration flow.
type SignupHandler struct {
	Auth *service.AuthService
}

type signupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (h *SignupHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		writeBadRequest(w, "A valid email is required.")
		return
	case req.FirstName == "":
		writeBadRequest(w, "first_name is required.")
		return
	case len(req.Password) < minPasswordLength:
		writeBadRequest(w, "Password must be at least 8 characters.")
		return
	}

	err := h.Auth.Signup(r.Context(), service.SignupParams{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "verification_sent",
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *SignupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeBadRequest(w, "email and code are required.")
		return
	}

	user, err := h.Auth.ConfirmSignup(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"status":  "account_created",
		"user_id": user.ID,
	})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *SignupHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeBadRequest(w, "email is required.")
		return
	}

	if err := h.Auth.ResendSignupCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "verification_resent",
	})
}
