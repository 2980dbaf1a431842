package authtoken

import "errors"

var (
	// ErrTokenInvalid is returned for malformed tokens, bad signatures, and
	// tokens whose hash doesn't match the persisted session.
	ErrTokenInvalid = errors.New("authtoken: invalid token")

	// ErrTokenExpired is returned for structurally valid but expired tokens.
	ErrTokenExpired = errors.New("authtoken: token expired")

	// ErrWrongTokenType is returned when an access token is presented where
	// a refresh token is expected or vice versa.
	ErrWrongTokenType = errors.New("authtoken: wrong token type")

	// ErrSessionNotFound is returned when no session record exists for the
	// refresh token's (subject, jti).
	ErrSessionNotFound = errors.New("authtoken: session not found")

	// ErrSessionRevoked is returned when the refresh token's session record
	// has been revoked.
	ErrSessionRevoked = errors.New("authtoken: session revoked")

	// ErrTokenReused signals that an already-rotated or revoked refresh
	// token was presented again. All of the subject's sessions are revoked
	// as a side effect: reuse is treated as possible token theft.
	ErrTokenReused = errors.New("authtoken: refresh token reuse detected")

	// ErrSubjectMismatch is returned when the user handed to Rotate doesn't
	// match the token's subject.
	ErrSubjectMismatch = errors.New("authtoken: subject mismatch")

	// ErrDuplicateJTI is returned by stores when a session with the same
	// jti already exists.
	ErrDuplicateJTI = errors.New("authtoken: duplicate jti")
)
