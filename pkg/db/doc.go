// Package db provides PostgreSQL utilities on top of
// [github.com/jackc/pgx/v5/pgxpool]: pooled connections with startup retry,
// goose migrations over an embedded filesystem, a transaction helper, and a
// health check closure.
//
// Configuration is carried by env-tagged structs; parsing is left to the
// host application.
package db
