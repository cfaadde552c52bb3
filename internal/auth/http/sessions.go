package http

import (
	"net/http"
	"strings"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/pkg/httpx"
)

// SessionHandler serves login, refresh, logout and the current-user
// endpoint.
type SessionHandler struct {
	Auth   *service.AuthService
	Secure bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Malformed JSON body.")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required.")
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	setRefreshCookie(w, pair, h.Auth.Tokens.RefreshTTL, h.Secure)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh accepts the refresh token from the JSON body or, for browser
// clients, from the HttpOnly cookie.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			writeBadRequest(w, "Malformed JSON body.")
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = c.Value
		}
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required.")
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	setRefreshCookie(w, pair, h.Auth.Tokens.RefreshTTL, h.Secure)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	if err := h.Auth.Logout(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	clearRefreshCookie(w, h.Secure)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	CreatedAt     string `json:"created_at"`
	LastLogin     string `json:"last_login,omitempty"`
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	user, err := h.Auth.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := userResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		ProfilePicURL: user.ProfilePicURL,
		CreatedAt:     user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if user.LastLogin != nil {
		resp.LastLogin = user.LastLogin.UTC().Format("2006-01-02T15:04:05Z")
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
