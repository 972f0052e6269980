package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/conychips/auth/internal/auth/rbac"
	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/internal/auth/store"
	"github.com/conychips/auth/pkg/httpx"
	"github.com/conychips/auth/pkg/slogx"

	_ "github.com/conychips/auth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache Pinger

	TokenService *service.TokenService
	AuthService  *service.AuthService
	UserService  *service.UserService
	RolesService *service.RolesService
}

// NewRouter builds a router around the token service. The use case services
// are assigned by the caller before ApplyRoutes. cache may be nil.
func NewRouter(
	tokens *service.TokenService,
	buildVersion string,
	st store.Store,
	cache Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		cache:        cache,
		TokenService: tokens,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerDevices()
	r.registerUsers()
	r.registerRoles()
	r.registerTokens()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Cony Chips Authentication API
//	@version		0.1.0
//	@description	Device registration, login, token rotation and revocation for Cony Chips.
//	@description
//	@description				Tokens are RS256 JWTs and can be verified with the JWKS endpoint.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authenticated(h http.Handler, mws ...httpx.Middleware) http.Handler {
	return httpx.Chain(h, append([]httpx.Middleware{httpx.Authenticate(r.TokenService)}, mws...)...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints are limited by IP and the email in the body so a
	// single address cannot be brute forced from many IPs at the full rate.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandlePasswordForgot),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandlePasswordReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		r.authenticated(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout-all",
		r.authenticated(http.HandlerFunc(h.HandleLogoutAll),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerDevices() {
	r.Mux.Handle("POST /v1/devices",
		httpx.Chain(&DeviceHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /v1/me",
		r.authenticated(&MeHandler{UserService: r.UserService},
			httpx.RequirePermissions(rbac.HasPermission, rbac.PermProfileRead),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	r.Mux.Handle("GET /v1/roles",
		r.authenticated(http.HandlerFunc(h.HandleList),
			httpx.RequirePermissions(rbac.HasPermission, rbac.PermUsersRead),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	manage := httpx.RequirePermissions(rbac.HasPermission, rbac.PermUsersManageRoles)
	r.Mux.Handle("POST /v1/users/{id}/roles/{role}",
		r.authenticated(http.HandlerFunc(h.HandleAssign), manage,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{id}/roles/{role}",
		r.authenticated(http.HandlerFunc(h.HandleRemove), manage,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTokens() {
	h := &TokensHandler{TokenService: r.TokenService}

	r.Mux.Handle("POST /v1/tokens/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/tokens/revoke",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.TokenService.JWKS),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.TokenService.Ready, r.cache),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
