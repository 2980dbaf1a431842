package authtoken

import (
	"context"
	"time"
)

// Session is the persisted record backing one refresh-token lineage.
// A refresh token is valid only while its signature verifies, it is
// unexpired, AND a matching unrevoked session exists.
type Session struct {
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // sha-256 digest of the raw token, never the token itself
	JTI       string     `json:"jti"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UserAgent string     `json:"user_agent,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool { return s.RevokedAt != nil }

// Store defines refresh-session persistence. The token engine exclusively
// owns session lifecycle; nothing else mutates these records.
type Store interface {
	// Create persists a new session. Returns ErrDuplicateJTI if a session
	// with the same jti already exists.
	Create(ctx context.Context, s *Session) error

	// Find retrieves a session by (subject, jti), revoked or not.
	// Returns ErrSessionNotFound if no such session exists.
	Find(ctx context.Context, userID, jti string) (*Session, error)

	// Revoke conditionally marks the session revoked. Returns false when
	// the session is absent or already revoked. The already-revoked case
	// is how the second of two racing rotations lands in the reuse path.
	Revoke(ctx context.Context, userID, jti string, at time.Time) (bool, error)

	// RevokeAll marks every unrevoked session of the subject revoked and
	// returns how many were affected.
	RevokeAll(ctx context.Context, userID string, at time.Time) (int64, error)

	// Delete removes a single session row.
	Delete(ctx context.Context, userID, jti string) error

	// ListActive returns the subject's unrevoked, unexpired sessions.
	ListActive(ctx context.Context, userID string, now time.Time) ([]*Session, error)

	// Purge deletes rows that are expired at now, or revoked for longer
	// than the retention window. Returns the number of rows removed.
	Purge(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
