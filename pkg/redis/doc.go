// Package redis wraps [github.com/redis/go-redis/v9] with URL-based
// connection setup, startup retry, and a health check closure.
package redis
