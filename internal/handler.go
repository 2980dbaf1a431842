package internal

// Handler declares routes on a router.
//
// Example:
//
//	type AuthHandler struct {
//	    tokens *authtoken.Service
//	}
//
//	func (h *AuthHandler) Routes(r clinicore.Router) {
//	    r.POST("/login", h.login)
//	    r.POST("/refresh", h.refresh)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// It receives a Context and returns an error.
// Returning a non-nil error triggers the error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect the request, inject derived data into the context,
// short-circuit by writing a response without calling next, or return an
// error to hand control to the error handler.
//
// Example:
//
//	func Auth(next clinicore.HandlerFunc) clinicore.HandlerFunc {
//	    return func(c clinicore.Context) error {
//	        if !isAuthenticated(c) {
//	            return internal.ErrUnauthorized("authentication required")
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler converts errors returned from handlers into responses.
type ErrorHandler func(Context, error) error
