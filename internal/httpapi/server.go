// Package httpapi is the HTTP surface: routing, middleware, handlers and
// error mapping over the auth and rbac services.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/auth"
	"authgrid.org/internal/config"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/rbac"
	"authgrid.org/internal/telemetry"
)

// Options collects the API's collaborators.
type Options struct {
	RBAC      *rbac.Service
	Issuer    *auth.Issuer
	Verifier  *auth.Verifier
	Validator *auth.Validator
	Telemetry *telemetry.Service
	Trail     *audit.Trail
	Log       *zap.SugaredLogger
	// Ready reports backend health for the readiness probe; nil means
	// always ready.
	Ready  func(context.Context) error
	Config config.Config
}

// API is the HTTP layer.
type API struct {
	router    *mux.Router
	rbac      *rbac.Service
	issuer    *auth.Issuer
	verifier  *auth.Verifier
	validator *auth.Validator
	telemetry *telemetry.Service
	trail     *audit.Trail
	log       *zap.SugaredLogger
	ready     func(context.Context) error
}

func New(opts Options) (*API, error) {
	if opts.RBAC == nil || opts.Issuer == nil || opts.Verifier == nil || opts.Validator == nil {
		return nil, errors.New("httpapi: rbac service, issuer, verifier and validator are required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Trail == nil {
		opts.Trail = audit.New(opts.Log)
	}
	a := &API{
		router:    mux.NewRouter(),
		rbac:      opts.RBAC,
		issuer:    opts.Issuer,
		verifier:  opts.Verifier,
		validator: opts.Validator,
		telemetry: opts.Telemetry,
		trail:     opts.Trail,
		log:       opts.Log,
		ready:     opts.Ready,
	}
	a.routes(opts.Config)
	return a, nil
}

// Handler returns the fully assembled http.Handler.
func (a *API) Handler() http.Handler { return a.router }

func (a *API) routes(cfg config.Config) {
	r := a.router

	r.HandleFunc("/v1/auth/login", a.handleLogin).Methods(http.MethodPost).Name(routeLogin)
	r.HandleFunc("/v1/profile", a.handleProfile).Methods(http.MethodGet).Name(routeProfile)

	r.HandleFunc("/v1/users", a.handleCreateUser).Methods(http.MethodPost).Name(routeUsersCreate)
	r.HandleFunc("/v1/users", a.handleListUsers).Methods(http.MethodGet).Name(routeUsersList)
	r.HandleFunc("/v1/users/{id}", a.handleGetUser).Methods(http.MethodGet).Name(routeUsersGet)
	r.HandleFunc("/v1/users/{id}", a.handleUpdateUser).Methods(http.MethodPatch).Name(routeUsersUpdate)
	r.HandleFunc("/v1/users/{id}", a.handleDeleteUser).Methods(http.MethodDelete).Name(routeUsersDelete)
	r.HandleFunc("/v1/users/{id}/roles/{roleID}", a.handleAssignRole).Methods(http.MethodPost).Name(routeUsersAssignRole)
	r.HandleFunc("/v1/users/{id}/roles/{roleID}", a.handleRemoveRole).Methods(http.MethodDelete).Name(routeUsersRemoveRole)

	r.HandleFunc("/v1/roles", a.handleCreateRole).Methods(http.MethodPost).Name(routeRolesCreate)
	r.HandleFunc("/v1/roles", a.handleListRoles).Methods(http.MethodGet).Name(routeRolesList)
	r.HandleFunc("/v1/roles/{id}", a.handleGetRole).Methods(http.MethodGet).Name(routeRolesGet)
	r.HandleFunc("/v1/roles/{id}", a.handleUpdateRole).Methods(http.MethodPatch).Name(routeRolesUpdate)
	r.HandleFunc("/v1/roles/{id}", a.handleDeleteRole).Methods(http.MethodDelete).Name(routeRolesDelete)
	r.HandleFunc("/v1/roles/{id}/permissions/{permID}", a.handleAddRolePermission).Methods(http.MethodPost).Name(routeRolesAddPerm)
	r.HandleFunc("/v1/roles/{id}/permissions/{permID}", a.handleRemoveRolePermission).Methods(http.MethodDelete).Name(routeRolesRemovePerm)

	r.HandleFunc("/v1/permissions", a.handleCreatePermission).Methods(http.MethodPost).Name(routePermsCreate)
	r.HandleFunc("/v1/permissions", a.handleListPermissions).Methods(http.MethodGet).Name(routePermsList)
	r.HandleFunc("/v1/permissions/{id}", a.handleGetPermission).Methods(http.MethodGet).Name(routePermsGet)
	r.HandleFunc("/v1/permissions/{id}", a.handleUpdatePermission).Methods(http.MethodPatch).Name(routePermsUpdate)
	r.HandleFunc("/v1/permissions/{id}", a.handleDeletePermission).Methods(http.MethodDelete).Name(routePermsDelete)

	r.HandleFunc("/v1/telemetry/events", a.handleTelemetryEvents).Methods(http.MethodPost).Name(routeTelemetryIngest)

	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet).Name(routeMetrics)
	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet).Name(routeHealth)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet).Name(routeReady)

	general := newIPLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)
	login := newIPLimiter(rate.Limit(float64(cfg.LoginPerMinute)/60.0), cfg.LoginBurst)

	r.Use(
		RequestID,
		Logging(a.log),
		SecurityHeaders,
		MaxBodyBytes(cfg.MaxBodyBytes),
		rateLimit(general, login),
		instrument,
		a.withAuth,
		a.withAuthz,
	)
}

// rateLimit applies the tighter login bucket on the login route and the
// general bucket everywhere else.
func rateLimit(general, login *ipLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := general
			if route := mux.CurrentRoute(r); route != nil && route.GetName() == routeLogin {
				lim = login
			}
			lim.middleware(next).ServeHTTP(w, r)
		})
	}
}

// instrument records Prometheus HTTP metrics labeled by route template, not
// raw path, to keep label cardinality bounded.
func instrument(next http.Handler) http.Handler {
	return obs.Instrument(next, func(r *http.Request) string {
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				return tmpl
			}
		}
		return "unmatched"
	})
}
