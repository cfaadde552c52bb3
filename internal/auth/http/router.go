package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/verdantlabs/sprout/internal/auth/service"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/pkg/httpx"
	"github.com/verdantlabs/sprout/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService  *service.AuthService
	TokenService *service.TokenService

	// SecureCookies controls the Secure flag on token cookies; off for
	// plain-http local development.
	SecureCookies bool
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerSignup()
	r.registerPassword()
	r.registerEmailChange()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{Auth: r.AuthService, Secure: r.SecureCookies}
	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.Me),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSignup() {
	h := &SignupHandler{Auth: r.AuthService}

	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.Start),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/signup/verify",
		httpx.Chain(http.HandlerFunc(h.Verify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/signup/resend",
		httpx.Chain(http.HandlerFunc(h.Resend),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{Auth: r.AuthService, Secure: r.SecureCookies}
	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("POST /v1/auth/password/change",
		httpx.Chain(http.HandlerFunc(h.Change),
			authn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.Forgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.Reset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerEmailChange() {
	h := &EmailChangeHandler{Auth: r.AuthService}
	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("POST /v1/auth/email/change",
		httpx.Chain(http.HandlerFunc(h.Request),
			authn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/email/resend",
		httpx.Chain(http.HandlerFunc(h.Resend),
			authn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/email/confirm",
		httpx.Chain(http.HandlerFunc(h.Confirm),
			authn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
