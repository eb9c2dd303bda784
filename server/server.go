// Package server implements the central half of the SSO protocol: the
// attach handshake that links a broker SID to an application session,
// the per-request broker session resolver, and the command handlers
// built on top of it.
package server

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/ceceprawiro/sso/directory"
	"github.com/ceceprawiro/sso/linkcache"
	"github.com/ceceprawiro/sso/session"
)

const (
	// DefaultTokenTTL bounds both the broker token cookie and the link
	// cache entry it corresponds to; keeping them equal means a link
	// can never outlive its token by more than clock skew.
	DefaultTokenTTL = time.Hour
	// DefaultSessionTTL bounds the application session itself.
	DefaultSessionTTL = 24 * time.Hour

	// SessionCookieName is the server's own session cookie, the moral
	// equivalent of a PHP session id. Brokers never see it; it only
	// travels between the browser and the server during attach.
	SessionCookieName = "sso_server_session"
)

// API holds the dependencies needed by the SSO server handlers.
type API struct {
	brokers    directory.SecretStore
	users      directory.AuthBackend
	links      linkcache.Cache
	sessions   session.Store
	limiter    *loginRateLimiter
	audit      *auditLogger
	tokenTTL   time.Duration
	sessionTTL time.Duration
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithTokenTTL overrides the token/link lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.tokenTTL = ttl
	}
}

// WithSessionTTL overrides the application session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.sessionTTL = ttl
	}
}

// New creates a new API instance.
func New(brokers directory.SecretStore, users directory.AuthBackend, links linkcache.Cache, sessions session.Store, opts ...Option) *API {
	a := &API{
		brokers:    brokers,
		users:      users,
		links:      links,
		sessions:   sessions,
		limiter:    newLoginRateLimiter(),
		tokenTTL:   DefaultTokenTTL,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with the SSO endpoint and docs mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	// The wire protocol multiplexes everything over one endpoint with a
	// command query parameter; login carries its credentials in a form
	// body but keeps command and sid in the query string.
	r.Get("/", a.Dispatch)
	r.Post("/", a.Dispatch)

	return r
}

// Dispatch routes a request on its command query parameter.
func (a *API) Dispatch(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("command") {
	case "attach":
		a.Attach(w, r)
	case "getUser":
		a.GetUser(w, r)
	case "login":
		a.Login(w, r)
	case "logout":
		a.Logout(w, r)
	default:
		writeError(w, http.StatusBadRequest, "invalid command")
	}
}
