package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clinicore/clinicore/pkg/health"
	"github.com/clinicore/clinicore/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App is the request dispatcher and application lifecycle owner. The route
// table is built during New and frozen before the first request; after that
// every dispatch is a read-only scan, so App needs no locking.
//
// App is not an ambient singleton: it is constructed explicitly and passed
// by reference to whoever serves it.
type App struct {
	table                   *routeTable
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger
	middlewares             []Middleware
	handlers                []Handler
	debug                   bool
}

// New creates a new application with the given options.
// The App is immutable after creation: handlers declare their routes during
// New, then the route table freezes.
func New(opts ...Option) *App {
	a := &App{
		table:  &routeTable{},
		logger: logger.NewNope(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.setupRoutes()
	a.table.freeze()
	return a
}

// setupRoutes registers health endpoints and handler routes.
func (a *App) setupRoutes() {
	r := newRouterScope(a.table)

	if a.healthConfig != nil {
		live := health.LivenessHandler()
		ready := health.ReadinessHandler(a.healthConfig.checks)
		r.GET(a.healthConfig.livenessPath, func(c Context) error {
			live(c.Response(), c.Request())
			return nil
		})
		r.GET(a.healthConfig.readinessPath, func(c Context) error {
			ready(c.Response(), c.Request())
			return nil
		})
	}

	for _, h := range a.handlers {
		h.Routes(r)
	}
}

// ServeHTTP dispatches an inbound request: normalize the path, find the
// first matching route in registration order, then run its middleware chain
// with the bound handler as the terminal step.
func (a *App) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := NormalizePath(req.URL.Path)

	route, params, found := a.table.lookup(req.Method, path)
	if route == nil {
		c := newContext(w, req, path, nil, a.logger)
		if found {
			a.runFallback(c, a.methodNotAllowedHandler, ErrMethodNotAllowed("method not allowed"))
		} else {
			a.runFallback(c, a.notFoundHandler, ErrNotFound("resource not found"))
		}
		return
	}

	c := newContext(w, req, path, params, a.logger)

	// Effective order: global, then group (outer first), then route-specific.
	mw := make([]Middleware, 0, len(a.middlewares)+len(route.middlewares))
	mw = append(mw, a.middlewares...)
	mw = append(mw, route.middlewares...)

	if err := Chain(route.handler, mw...)(c); err != nil {
		a.handleError(c, err)
	}
}

// runFallback handles no-match outcomes. Global middleware still wraps the
// fallback handler so request IDs and panic recovery apply to 404/405
// responses too.
func (a *App) runFallback(c Context, h HandlerFunc, defaultErr *HTTPError) {
	if h == nil {
		h = func(c Context) error { return defaultErr }
	}
	if err := Chain(h, a.middlewares...)(c); err != nil {
		a.handleError(c, err)
	}
}

// handleError is the single point converting an uncaught failure into a
// structured response. Handlers and middleware never write error responses
// to the transport themselves.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		return
	}
	if a.errorHandler != nil {
		if herr := a.errorHandler(c, err); herr == nil || c.Written() {
			return
		}
	}
	_ = a.writeErrorResponse(c, err)
}

// errorResponse is the wire shape of a dispatcher-produced error.
type errorResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Method    string     `json:"method"`
	Path      string     `json:"path"`
	Timestamp string     `json:"timestamp"`
	Debug     *debugInfo `json:"debug,omitempty"`
}

// debugInfo is only ever populated when the app runs with WithDebug(true).
// Production responses stay generic.
type debugInfo struct {
	Error string `json:"error"`
}

func (a *App) writeErrorResponse(c Context, err error) error {
	code := http.StatusInternalServerError
	message := http.StatusText(code)

	if httpErr := AsHTTPError(err); httpErr != nil {
		code = httpErr.Code
		message = httpErr.Message
	}

	if code >= http.StatusInternalServerError {
		c.LogError("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
	}

	body := errorResponse{
		Message:   message,
		Method:    c.Method(),
		Path:      c.Path(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if a.debug {
		body.Debug = &debugInfo{Error: err.Error()}
	}
	return c.JSON(code, body)
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	app := clinicore.New(
//	    clinicore.WithHandlers(handlers.NewAuth(tokens, users)),
//	)
//	err := app.Run(":8080", clinicore.Logger(log))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	return runServer(runtimeConfig{
		handler:         a,
		address:         addr,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    cfg.startupHooks,
		shutdownHooks:   cfg.shutdownHooks,
		baseCtx:         cfg.baseCtx,
	})
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during the readiness probe.
//
// Example:
//
//	clinicore.WithReadinessCheck("db", db.Healthcheck(pool))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}

var _ context.Context = (*requestContext)(nil)
