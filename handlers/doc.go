// Package handlers contains the HTTP endpoint handlers wired into the
// application route table.
//
// AuthHandler covers the token lifecycle: login issues an access/refresh
// pair, refresh rotates the pair (single-use refresh tokens with reuse
// detection), and the logout and session endpoints revoke persisted
// sessions individually or en masse.
//
//	app := clinicore.New(
//	    clinicore.WithHandlers(
//	        handlers.NewAuth(tokens, users),
//	    ),
//	)
package handlers
