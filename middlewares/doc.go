// Package middlewares provides HTTP middleware for clinicore applications.
//
// # Request ID
//
// RequestID assigns a unique ID to each request for tracing and debugging.
// It checks incoming headers for existing IDs or generates new ones.
// Use RequestIDExtractor() with WithLogger for automatic request_id in all
// log entries:
//
//	app := clinicore.New(
//	    clinicore.WithLogger("api", middlewares.RequestIDExtractor()),
//	    clinicore.WithMiddleware(
//	        middlewares.RequestID(),
//	    ),
//	)
//
// # Recover
//
// Recover catches panics and converts them to typed errors. The PanicError
// is handled by the global ErrorHandler, which renders it as a 500 response
// in the standard JSON envelope.
//
// # Timeout
//
// Timeout enforces request deadlines and returns typed TimeoutError.
// Note: the handler goroutine continues after timeout; use
// GetTimeoutContext for early termination.
//
// # Authenticate
//
// Authenticate validates Bearer access tokens statelessly and stores the
// claims in the context. RequireRole layers role checks on top:
//
//	api := app.Group("/api", middlewares.Authenticate(tokens))
//	admin := api.Group("/admin", middlewares.RequireRole("admin"))
//
// # RateLimit
//
// RateLimit enforces a redis-backed fixed-window per-client limit, keyed
// by client IP by default.
//
// # Recommended Order
//
//	clinicore.WithMiddleware(
//	    middlewares.RequestID(),  // First: assign ID for all subsequent logging
//	    middlewares.Recover(),    // Second: catch panics from timeout and handlers
//	    middlewares.Timeout(30*time.Second),
//	)
//
// with Authenticate, RequireRole, and RateLimit applied per route group.
package middlewares
