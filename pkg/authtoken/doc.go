// Package authtoken implements the dual-token authentication lifecycle:
// short-lived stateless HS256 access tokens paired with long-lived,
// database-backed refresh tokens.
//
// Access tokens carry the full identity claim set and validate without any
// storage lookup. Refresh tokens carry only a subject and a jti; validity
// additionally requires a matching unrevoked session record, which makes
// individual sessions revocable server-side.
//
// Rotation makes refresh tokens single-use: exchanging one revokes its
// session and issues a fresh pair. Presenting a consumed token again is
// treated as reuse and revokes every active session of the subject.
//
//	store := authtoken.NewPostgresStore(pool)
//	svc, err := authtoken.NewService(store, cfg)
//	pair, err := svc.Issue(ctx, user, client)
//	pair, err = svc.Rotate(ctx, pair.RefreshToken, user, client)
//
// A Cleaner runs the periodic sweep that removes expired sessions and
// revoked sessions past the retention window.
package authtoken
