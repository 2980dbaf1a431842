// Package clinicore provides the HTTP core for clinic management services:
// an explicit, registration-order router with middleware chaining, and a
// dual-token (access/refresh) authentication lifecycle.
//
// # Quick Start
//
// Create a new application with clinicore.New(), configure it with options,
// and call Run() to start the HTTP server:
//
//	app := clinicore.New(
//	    clinicore.WithLogger("api", middlewares.RequestIDExtractor()),
//	    clinicore.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.Recover(),
//	    ),
//	    clinicore.WithHandlers(
//	        handlers.NewAuth(tokens, users),
//	    ),
//	)
//
//	if err := app.Run(":8080", clinicore.Logger(log)); err != nil {
//	    log.Error("server stopped", "error", err)
//	}
//
// # Routing
//
// Handlers implement the [Handler] interface to declare routes. Path
// templates mix literal segments with {name} placeholders; an optional
// regex constraint restricts the captured value:
//
//	func (h *PatientHandler) Routes(r clinicore.Router) {
//	    r.GET("/patients/me", h.me)
//	    r.GET("/patients/{id}", h.show).Where("id", `[0-9]+`)
//	    r.Group("/admin", func(r clinicore.Router) {
//	        r.DELETE("/patients/{id}", h.remove)
//	    }, middlewares.RequireRole("admin"))
//	}
//
// Dispatch is first-match-wins over registration order, so register the
// more specific route first. A request whose path matches only under a
// different verb yields 405 rather than 404.
//
// # Middleware
//
// Middleware wraps handlers to add cross-cutting concerns:
//
//	func Logger(log *slog.Logger) clinicore.Middleware {
//	    return func(next clinicore.HandlerFunc) clinicore.HandlerFunc {
//	        return func(c clinicore.Context) error {
//	            start := time.Now()
//	            err := next(c)
//	            log.Info("request",
//	                "method", c.Method(),
//	                "path", c.Path(),
//	                "duration", time.Since(start),
//	            )
//	            return err
//	        }
//	    }
//	}
//
// # Errors
//
// Handlers return errors instead of writing error responses. The app
// renders uncaught errors as a JSON envelope with success, message,
// method, path, and timestamp fields; HTTPError values control the
// status code and message.
//
// # Authentication
//
// The pkg/authtoken package issues short-lived stateless access tokens
// paired with database-backed single-use refresh tokens; the middlewares
// and handlers packages wire the lifecycle into routes.
package clinicore
