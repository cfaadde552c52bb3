package http

import (
	"net/http"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/domain"
)

const refreshCookieName = "refresh_token"

// setRefreshCookie installs the refresh token as an HttpOnly cookie so
// browser clients never touch it from script. SameSite=None because the
// frontend lives on a different origin.
func setRefreshCookie(w http.ResponseWriter, pair domain.TokenPair, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/v1/auth",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}
