package authtoken

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTTL        = 15 * time.Minute
	DefaultRefreshTTL       = 7 * 24 * time.Hour
	DefaultRevokedRetention = 30 * 24 * time.Hour
)

// Config holds token engine settings. Access and refresh tokens are signed
// with distinct keys so one leaked key never compromises both lifetimes.
type Config struct {
	Issuer           string        `env:"AUTH_ISSUER" envDefault:"clinicore"`
	AccessSecret     string        `env:"AUTH_ACCESS_SECRET,required"`
	RefreshSecret    string        `env:"AUTH_REFRESH_SECRET,required"`
	AccessTTL        time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL       time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	RevokedRetention time.Duration `env:"AUTH_REVOKED_RETENTION" envDefault:"720h"`
}

// Service issues, validates, rotates, and revokes access/refresh token
// pairs. Access validation is stateless; refresh validation additionally
// requires an unrevoked persisted session record.
type Service struct {
	store         Store
	parser        *jwt.Parser
	now           func() time.Time
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	retention     time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a token engine backed by the given session store.
func NewService(store Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("authtoken: nil store")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("authtoken: signing secrets are required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "clinicore"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RevokedRetention <= 0 {
		cfg.RevokedRetention = DefaultRevokedRetention
	}

	s := &Service{
		store:         store,
		now:           time.Now,
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		retention:     cfg.RevokedRetention,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// Issue mints a fresh access/refresh pair for the user and persists the
// session record backing the refresh token.
func (s *Service) Issue(ctx context.Context, user User, client ClientInfo) (*TokenPair, error) {
	now := s.now()
	jti := uuid.NewString()

	access := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		TokenType: TypeAccess,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return nil, err
	}

	refreshExpiry := now.Add(s.refreshTTL)
	refresh := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			ID:        jti,
		},
		TokenType: TypeRefresh,
		UserID:    user.ID,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, &Session{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		JTI:       jti,
		ExpiresAt: refreshExpiry,
		CreatedAt: now,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresIn:  int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
		TokenType:        "Bearer",
	}, nil
}

// ValidateAccess verifies an access token's signature, type, and expiry.
// No database lookup: this is the per-request fast path.
func (s *Service) ValidateAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.accessSecret, nil
	}); err != nil {
		return nil, mapJWTError(err)
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token's signature, type, and expiry
// without consulting the session store, so the caller can read the subject
// before deciding what to do with the token. An authentically signed but
// expired token has its backing session row opportunistically deleted.
// Callers needing full validity use ValidateRefresh or Rotate, which also
// check the persisted session.
func (s *Service) ParseRefresh(ctx context.Context, raw string) (*RefreshClaims, error) {
	claims, err := s.parseRefresh(raw)
	if err != nil {
		s.dropExpiredSession(ctx, claims, err)
		return nil, err
	}
	return claims, nil
}

// ValidateRefresh verifies a refresh token end to end: signature, type,
// expiry, and a matching unrevoked session record. No other side effects.
func (s *Service) ValidateRefresh(ctx context.Context, raw string) (*RefreshClaims, error) {
	claims, err := s.ParseRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkSession(ctx, claims, raw); err != nil {
		return nil, err
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a brand-new pair, revoking the
// consumed session so the old token becomes single-use. The revoke is
// conditional on the row being unrevoked: of two concurrent rotations of
// the same token, exactly one wins and the other lands here in the reuse
// path. Reuse revokes every active session of the subject.
//
// user must be the freshly loaded subject of the token; its attributes are
// minted into the new access token.
func (s *Service) Rotate(ctx context.Context, raw string, user User, client ClientInfo) (*TokenPair, error) {
	claims, err := s.ParseRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	if user.ID != claims.UserID {
		return nil, ErrSubjectMismatch
	}

	if _, err := s.checkSession(ctx, claims, raw); err != nil {
		if errors.Is(err, ErrSessionRevoked) {
			_, _ = s.store.RevokeAll(ctx, claims.UserID, s.now())
			return nil, ErrTokenReused
		}
		return nil, err
	}

	ok, err := s.store.Revoke(ctx, claims.UserID, claims.JTI(), s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: the session was revoked between check and revoke.
		_, _ = s.store.RevokeAll(ctx, claims.UserID, s.now())
		return nil, ErrTokenReused
	}

	return s.Issue(ctx, user, client)
}

// Revoke terminates a single session by (subject, jti).
// Returns ErrSessionNotFound if no unrevoked session matches.
func (s *Service) Revoke(ctx context.Context, userID, jti string) error {
	ok, err := s.store.Revoke(ctx, userID, jti, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeAll terminates every active session of the subject
// (logout-everywhere). Returns the number of sessions revoked.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return s.store.RevokeAll(ctx, userID, s.now())
}

// Sessions lists the subject's active sessions.
func (s *Service) Sessions(ctx context.Context, userID string) ([]*Session, error) {
	return s.store.ListActive(ctx, userID, s.now())
}

// Cleanup deletes expired rows and rows revoked for longer than the
// retention window. Run periodically; see Cleaner.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	return s.store.Purge(ctx, s.now(), s.retention)
}

// parseRefresh returns the claims even alongside an error: an expired token
// still carries trustworthy claims (the signature is verified before claim
// validation), which dropExpiredSession needs.
func (s *Service) parseRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.refreshSecret, nil
	}); err != nil {
		return claims, mapJWTError(err)
	}
	if claims.TokenType != TypeRefresh {
		return claims, ErrWrongTokenType
	}
	if claims.JTI() == "" || claims.UserID == "" {
		return claims, ErrTokenInvalid
	}
	return claims, nil
}

// dropExpiredSession deletes the session row behind a refresh token that
// failed parsing with ErrTokenExpired. Expiry implies the signature checked
// out, so the claims identify the row reliably. Errors are ignored; the
// cleanup sweep catches whatever is left behind.
func (s *Service) dropExpiredSession(ctx context.Context, claims *RefreshClaims, err error) {
	if !errors.Is(err, ErrTokenExpired) {
		return
	}
	if claims == nil || claims.UserID == "" || claims.JTI() == "" {
		return
	}
	_ = s.store.Delete(ctx, claims.UserID, claims.JTI())
}

// checkSession enforces the stateful half of refresh validity. Row expiry
// needs no check here: the session's ExpiresAt mirrors the JWT exp claim,
// and the parser already rejected expired tokens.
func (s *Service) checkSession(ctx context.Context, claims *RefreshClaims, raw string) (*Session, error) {
	sess, err := s.store.Find(ctx, claims.UserID, claims.JTI())
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(sess.TokenHash), []byte(hashToken(raw))) != 1 {
		return nil, ErrTokenInvalid
	}
	if sess.Revoked() {
		return nil, ErrSessionRevoked
	}
	return sess, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
