package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/clinicore/clinicore/internal"
	"github.com/clinicore/clinicore/pkg/authtoken"
	"github.com/clinicore/clinicore/pkg/logger"
)

// authClaimsKey is the context key for validated access token claims.
type authClaimsKey struct{}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	Extractor    internal.Extractor
	extractorSet bool
}

// AuthOption configures AuthConfig.
type AuthOption func(*AuthConfig)

// WithAuthExtractor sets a custom token extractor chain.
func WithAuthExtractor(ext internal.Extractor) AuthOption {
	return func(cfg *AuthConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// Authenticate returns middleware that extracts an access token from the
// request, validates it statelessly, and stores the claims in the context.
// Requests without a valid token are rejected with 401 before the handler
// runs.
func Authenticate(svc *authtoken.Service, opts ...AuthOption) internal.Middleware {
	cfg := &AuthConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Default extractor: Bearer token from Authorization header
	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(
			internal.FromBearerToken(),
		)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			token, ok := cfg.Extractor.Extract(c)
			if !ok || token == "" {
				return internal.ErrUnauthorized("missing authentication token")
			}

			claims, err := svc.ValidateAccess(token)
			if err != nil {
				switch {
				case errors.Is(err, authtoken.ErrTokenExpired):
					return internal.ErrUnauthorized("token expired")
				default:
					return internal.ErrUnauthorized("invalid token")
				}
			}

			c.Set(authClaimsKey{}, claims)

			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects authenticated requests whose
// subject lacks one of the given roles. Must run after Authenticate.
func RequireRole(roles ...string) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			claims := GetAuthClaims(c)
			if claims == nil {
				return internal.ErrUnauthorized("missing authentication token")
			}
			if !slices.Contains(roles, claims.Role) {
				return internal.ErrForbidden("insufficient role")
			}
			return next(c)
		}
	}
}

// GetAuthClaims extracts validated access token claims from the context.
// Returns nil if the Authenticate middleware is not applied.
func GetAuthClaims(c internal.Context) *authtoken.AccessClaims {
	v, ok := c.Get(authClaimsKey{}).(*authtoken.AccessClaims)
	if !ok {
		return nil
	}
	return v
}

// CurrentUser reconstructs the authenticated user from the context claims.
// Returns the zero User and false if the request is unauthenticated.
func CurrentUser(c internal.Context) (authtoken.User, bool) {
	claims := GetAuthClaims(c)
	if claims == nil {
		return authtoken.User{}, false
	}
	return authtoken.User{
		ID:        claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		Role:      claims.Role,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, true
}

// UserIDExtractor returns a ContextExtractor for use with WithLogger.
// Adds "user_id" to log entries for authenticated requests.
func UserIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if claims, ok := ctx.Value(authClaimsKey{}).(*authtoken.AccessClaims); ok && claims.UserID != "" {
			return slog.String("user_id", claims.UserID), true
		}
		return slog.Attr{}, false
	}
}
