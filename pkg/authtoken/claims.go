package authtoken

import "github.com/golang-jwt/jwt/v5"

// Token type discriminators embedded in every token so an access token can
// never be replayed on a refresh endpoint or vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// User carries the identity attributes minted into an access token.
// Loading and verifying users is the host application's concern.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ClientInfo is request metadata recorded on the persisted session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// AccessClaims is the payload of a short-lived, stateless access token.
// Validity is purely cryptographic plus the expiry check; no database
// lookup happens on the request fast path.
type AccessClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RefreshClaims is the payload of a long-lived refresh token. The jti is
// carried in RegisteredClaims.ID and correlates the token with its
// persisted session record, whose state co-determines validity.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
	UserID    string `json:"user_id"`
}

// JTI returns the unique token identifier.
func (c *RefreshClaims) JTI() string { return c.ID }

// TokenPair is the response shape for login and refresh operations.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}
