package handlers

import (
	"context"
	"errors"

	"github.com/clinicore/clinicore/internal"
	"github.com/clinicore/clinicore/middlewares"
	"github.com/clinicore/clinicore/pkg/authtoken"
)

// uuidPattern constrains jti path parameters to canonical UUID form.
const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

// ErrInvalidCredentials is returned by UserVerifier implementations when the
// username/password pair does not identify a user. The handler maps it to a
// 401 without leaking which half was wrong.
var ErrInvalidCredentials = errors.New("handlers: invalid credentials")

// ErrUserNotFound is returned by UserVerifier implementations when no user
// exists for the given ID.
var ErrUserNotFound = errors.New("handlers: user not found")

// UserVerifier is the user-store collaborator the auth endpoints depend on.
// The token engine never touches user records directly.
type UserVerifier interface {
	// VerifyCredentials checks a username/password pair and returns the
	// matching user, or ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, username, password string) (authtoken.User, error)

	// FindByID loads a user by ID, or returns ErrUserNotFound.
	FindByID(ctx context.Context, id string) (authtoken.User, error)
}

// AuthHandler serves the authentication endpoints: login, token refresh,
// logout (single session and everywhere), and session introspection.
type AuthHandler struct {
	tokens   *authtoken.Service
	users    UserVerifier
	basePath string
	loginMW  []internal.Middleware
}

// AuthHandlerOption configures the AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// WithAuthBasePath overrides the default "/auth" route prefix.
func WithAuthBasePath(prefix string) AuthHandlerOption {
	return func(h *AuthHandler) {
		if prefix != "" {
			h.basePath = prefix
		}
	}
}

// WithLoginMiddleware attaches middleware to the login route only.
// Typically a tight rate limit on credential guessing.
func WithLoginMiddleware(mw ...internal.Middleware) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.loginMW = append(h.loginMW, mw...)
	}
}

// NewAuth creates the auth endpoint handler.
func NewAuth(tokens *authtoken.Service, users UserVerifier, opts ...AuthHandlerOption) *AuthHandler {
	h := &AuthHandler{
		tokens:   tokens,
		users:    users,
		basePath: "/auth",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes declares the auth endpoints. Login and refresh are public; the
// session management endpoints require a valid access token.
func (h *AuthHandler) Routes(r internal.Router) {
	r.Group(h.basePath, func(r internal.Router) {
		r.POST("/login", h.login, h.loginMW...).Name("auth.login")
		r.POST("/refresh", h.refresh).Name("auth.refresh")
		r.POST("/logout", h.logout).Name("auth.logout")

		r.Group("", func(r internal.Router) {
			r.POST("/logout-all", h.logoutAll).Name("auth.logout_all")
			r.GET("/sessions", h.sessions).Name("auth.sessions")
			r.DELETE("/sessions/{jti}", h.revokeSession).
				Where("jti", uuidPattern).
				Name("auth.revoke_session")
		}, middlewares.Authenticate(h.tokens))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(c internal.Context) error {
	var req loginRequest
	if err := c.BindJSON(&req); err != nil {
		return internal.ErrBadRequest("invalid request body", internal.WithError(err))
	}
	if req.Username == "" || req.Password == "" {
		return internal.ErrBadRequest("username and password are required")
	}

	user, err := h.users.VerifyCredentials(c, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return internal.ErrUnauthorized("invalid credentials")
		}
		return err
	}

	pair, err := h.tokens.Issue(c, user, clientInfo(c))
	if err != nil {
		return err
	}

	c.LogInfo("user logged in", "user_id", user.ID)
	return c.JSON(200, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshExtractor accepts the refresh token from the Authorization header
// or a "token" query parameter; the JSON body is tried first in refresh().
var refreshExtractor = internal.NewExtractor(
	internal.FromBearerToken(),
	internal.FromQuery("token"),
)

func (h *AuthHandler) refresh(c internal.Context) error {
	raw := h.refreshToken(c)
	if raw == "" {
		return internal.ErrBadRequest("missing refresh token")
	}

	// Stateless parse only: Rotate owns the session check, so a replayed
	// token reaches the reuse path and triggers family-wide revocation
	// instead of failing an up-front validation.
	claims, err := h.tokens.ParseRefresh(c, raw)
	if err != nil {
		return mapTokenError(err)
	}

	user, err := h.users.FindByID(c, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return internal.ErrUnauthorized("invalid token")
		}
		return err
	}

	pair, err := h.tokens.Rotate(c, raw, user, clientInfo(c))
	if err != nil {
		return mapTokenError(err)
	}

	return c.JSON(200, pair)
}

func (h *AuthHandler) logout(c internal.Context) error {
	raw := h.refreshToken(c)
	if raw == "" {
		return internal.ErrBadRequest("missing refresh token")
	}

	claims, err := h.tokens.ValidateRefresh(c, raw)
	if err != nil {
		return mapTokenError(err)
	}
	if err := h.tokens.Revoke(c, claims.UserID, claims.JTI()); err != nil {
		return mapTokenError(err)
	}

	c.LogInfo("session revoked", "user_id", claims.UserID, "jti", claims.JTI())
	return c.NoContent(204)
}

func (h *AuthHandler) logoutAll(c internal.Context) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return internal.ErrUnauthorized("missing authentication token")
	}

	n, err := h.tokens.RevokeAll(c, user.ID)
	if err != nil {
		return err
	}

	c.LogInfo("all sessions revoked", "user_id", user.ID, "count", n)
	return c.JSON(200, map[string]int64{"revoked_count": n})
}

func (h *AuthHandler) sessions(c internal.Context) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return internal.ErrUnauthorized("missing authentication token")
	}

	sessions, err := h.tokens.Sessions(c, user.ID)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []*authtoken.Session{}
	}
	return c.JSON(200, map[string]any{"sessions": sessions})
}

func (h *AuthHandler) revokeSession(c internal.Context) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return internal.ErrUnauthorized("missing authentication token")
	}

	err := h.tokens.Revoke(c, user.ID, c.Param("jti"))
	if errors.Is(err, authtoken.ErrSessionNotFound) {
		return internal.ErrNotFound("session not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(204)
}

// refreshToken pulls the raw refresh token from the JSON body, then falls
// back to the Authorization header and the "token" query parameter.
func (h *AuthHandler) refreshToken(c internal.Context) string {
	var req refreshRequest
	if err := c.BindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if raw, ok := refreshExtractor.Extract(c); ok {
		return raw
	}
	return ""
}

func clientInfo(c internal.Context) authtoken.ClientInfo {
	return authtoken.ClientInfo{
		UserAgent: c.Header("User-Agent"),
		IPAddress: middlewares.ClientIP(c),
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, authtoken.ErrTokenReused):
		return internal.ErrUnauthorized("refresh token reuse detected", internal.WithError(err))
	case errors.Is(err, authtoken.ErrTokenExpired):
		return internal.ErrUnauthorized("token expired", internal.WithError(err))
	case errors.Is(err, authtoken.ErrTokenInvalid),
		errors.Is(err, authtoken.ErrWrongTokenType),
		errors.Is(err, authtoken.ErrSessionNotFound),
		errors.Is(err, authtoken.ErrSessionRevoked),
		errors.Is(err, authtoken.ErrSubjectMismatch):
		return internal.ErrUnauthorized("invalid token", internal.WithError(err))
	default:
		return err
	}
}
