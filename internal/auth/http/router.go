package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/metrics"
	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/afci/trajet/pkg/slogx"

	_ "github.com/afci/trajet/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
//
// Every route registered through handle sits behind RequireAuthenticated.
// Only routes registered through handlePublic skip it, and unmatched paths
// fall through to a protected catch-all, so a route nobody thought about
// answers 401 rather than leaking a 404.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService    *service.AuthService
	RefreshService *service.RefreshService
	AccountService *service.AccountService
	Metrics        *metrics.Metrics
	RateLimits     httpx.RateLimitProfiles
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		RateLimits:   httpx.DefaultRateLimitProfiles(),
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Services must be assigned before it is called.
func (r *Router) ApplyRoutes() {
	var accounts httpx.AccountChecker
	if r.AccountService != nil {
		accounts = accountChecker(r.AccountService)
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.AuthnMiddleware(r.Metrics.InstrumentVerifier(r.verifier), accounts),
	}

	r.registerAuth()
	r.registerSessions()
	r.registerAdmin()
	r.registerSystem()

	r.handle("/", http.HandlerFunc(notFound))
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Trajet Authentication Service API
//	@version		0.1.0
//	@description	Login, refresh-token rotation and role-based access control for the Trajet platform.
//	@description
//	@description				Access tokens are HS256 signed JWTs carrying the account email as subject and the role codes in a "roles" claim.
//
//	@contact.name				AFCI Trajet Team
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

// handle registers a route that requires an authenticated principal.
func (r *Router) handle(pattern string, h http.Handler, mws ...httpx.Middleware) {
	mws = append([]httpx.Middleware{httpx.RequireAuthenticated()}, mws...)
	r.Mux.Handle(pattern, r.Metrics.InstrumentHandler(pattern, httpx.Chain(h, mws...)))
}

// handlePublic registers a route reachable without credentials.
func (r *Router) handlePublic(pattern string, h http.Handler, mws ...httpx.Middleware) {
	r.Mux.Handle(pattern, r.Metrics.InstrumentHandler(pattern, httpx.Chain(h, mws...)))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:    r.AuthService,
		RefreshService: r.RefreshService,
	}

	// Credential endpoints - strict limits. Login is keyed on IP + email so
	// one address cannot spray a single account.
	r.handlePublic("POST /api/auth/login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIPAndJSONField(r.RateLimits.Strict, "email"),
	)
	r.handlePublic("POST /api/auth/refresh", http.HandlerFunc(h.HandleRefresh),
		httpx.RateLimitByIP(r.RateLimits.Strict),
	)
	r.handlePublic("POST /api/auth/logout", http.HandlerFunc(h.HandleLogout),
		httpx.RateLimitByIP(r.RateLimits.Moderate),
	)

	me := &MeHandler{AccountService: r.AccountService}
	r.handle("GET /api/auth/me", me,
		httpx.RateLimitBySubject(r.RateLimits.Lenient),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{
		AccountService: r.AccountService,
		RefreshService: r.RefreshService,
	}

	r.handle("GET /api/auth/sessions", http.HandlerFunc(h.HandleList),
		httpx.RateLimitBySubject(r.RateLimits.Lenient),
	)
	r.handle("DELETE /api/auth/sessions/{id}", http.HandlerFunc(h.HandleRevoke),
		httpx.RateLimitBySubject(r.RateLimits.Moderate),
	)
}

func (r *Router) registerAdmin() {
	r.handle("GET /api/admin/ping", http.HandlerFunc(AdminPingHandler),
		httpx.RequireAnyRole(domain.RoleAdmin),
		httpx.RateLimitBySubject(r.RateLimits.Moderate),
	)
	r.handle("GET /api/admin/roles", &AdminRolesHandler{AccountService: r.AccountService},
		httpx.RequireAnyRole(domain.RoleAdmin),
		httpx.RateLimitBySubject(r.RateLimits.Moderate),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems poll these frequently.
	r.handlePublic("GET /livez", LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.RateLimits.Public),
	)
	r.handlePublic("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer, r.verifier),
		httpx.RateLimitByIP(r.RateLimits.Public),
	)
	r.handlePublic("GET /api/health/db", DBHealthHandler(r.store),
		httpx.RateLimitByIP(r.RateLimits.Public),
	)

	if r.Metrics != nil {
		r.handlePublic("GET /metrics", r.Metrics.Handler())
	}
	r.handlePublic("GET /swagger/", httpSwagger.Handler(),
		httpx.RateLimitByIP(r.RateLimits.Public),
	)
}

// notFound answers authenticated requests for unknown routes.
func notFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
}

// accountChecker tags the account states that refuse a token so storage
// failures are not mistaken for them.
func accountChecker(svc *service.AccountService) httpx.AccountChecker {
	return httpx.AccountCheckerFunc(func(ctx context.Context, subject string) error {
		err := svc.CheckAccount(ctx, subject)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrUnknownIdentity),
			errors.Is(err, service.ErrAccountDisabled),
			errors.Is(err, service.ErrAccountLocked):
			return fmt.Errorf("%w: %w", httpx.ErrAccountRejected, err)
		default:
			return err
		}
	})
}
