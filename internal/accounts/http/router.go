package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"

	_ "github.com/aussiebroadwan/accounts/api/accounts" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	cookies      httpx.CookieConfig
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	SessionService *service.SessionService
	AccountService *service.AccountService
	Clock          clockx.Clock

	// Database is checked by /readyz. Sessions is checked too when the
	// refresh token binding lives somewhere else (Redis).
	Database Pinger
	Sessions Pinger
}

// NewRouter builds a router. verifier checks access tokens.
func NewRouter(
	verifier jwtx.Verifier,
	cookies httpx.CookieConfig,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		cookies:      cookies,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			BarTab Accounts API
//	@version		0.1.0
//	@description	Account registration, login and rotating refresh tokens.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs signed with different secrets. Each account has exactly one valid refresh token; every refresh rotates it.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/accounts
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{
		AccountService: r.AccountService,
		Cookies:        r.cookies,
	}

	r.Mux.Handle("POST /v1/accounts", http.HandlerFunc(h.HandleRegister))

	authn := httpx.AuthnMiddleware(r.verifier)
	r.Mux.Handle("GET /v1/accounts/me", httpx.Chain(http.HandlerFunc(h.HandleMe), authn))
	r.Mux.Handle("PATCH /v1/accounts/me", httpx.Chain(http.HandlerFunc(h.HandleUpdateProfile), authn))
	r.Mux.Handle("POST /v1/accounts/me/password", httpx.Chain(http.HandlerFunc(h.HandleChangePassword), authn))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{
		SessionService: r.SessionService,
		Cookies:        r.cookies,
		Clock:          r.Clock,
	}

	r.Mux.Handle("POST /v1/sessions", http.HandlerFunc(h.HandleLogin))
	r.Mux.Handle("POST /v1/sessions/refresh", http.HandlerFunc(h.HandleRefresh))
	r.Mux.Handle("DELETE /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.Database, r.Sessions))
}
