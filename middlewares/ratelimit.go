package middlewares

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinicore/internal"
)

// Default fixed-window rate limit settings.
const (
	DefaultRateLimit  = 60
	DefaultRateWindow = time.Minute
)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Limit     int                           // Max requests per window
	Window    time.Duration                 // Window duration
	KeyPrefix string                        // Redis key namespace
	KeyFunc   func(internal.Context) string // Client identity; defaults to ClientIP
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimit sets the max requests per window.
func WithRateLimit(limit int) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Limit = limit
	}
}

// WithRateWindow sets the window duration.
func WithRateWindow(window time.Duration) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Window = window
	}
}

// WithRateKeyPrefix sets the redis key namespace, allowing separate
// budgets per endpoint group.
func WithRateKeyPrefix(prefix string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.KeyPrefix = prefix
	}
}

// WithRateKeyFunc sets a custom client identity function.
func WithRateKeyFunc(fn func(internal.Context) string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.KeyFunc = fn
	}
}

// RateLimit returns middleware enforcing a fixed-window per-client request
// limit backed by redis. The counter is incremented atomically; the window
// TTL is set when the counter is created. Redis failures fail open: a
// broken limiter should degrade to unlimited, not take the API down.
func RateLimit(client redis.UniversalClient, opts ...RateLimitOption) internal.Middleware {
	cfg := &RateLimitConfig{
		Limit:     DefaultRateLimit,
		Window:    DefaultRateWindow,
		KeyPrefix: "ratelimit",
		KeyFunc:   ClientIP,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, cfg.KeyFunc(c))

			pipe := client.TxPipeline()
			incr := pipe.Incr(c.Context(), key)
			pipe.ExpireNX(c.Context(), key, cfg.Window)
			if _, err := pipe.Exec(c.Context()); err != nil {
				c.LogWarn("rate limiter unavailable", "error", err)
				return next(c)
			}

			if incr.Val() > int64(cfg.Limit) {
				c.SetHeader("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
				return internal.ErrTooManyRequests("rate limit exceeded")
			}

			return next(c)
		}
	}
}

// ClientIP resolves the client address from proxy headers, falling back to
// the connection's remote address. The first X-Forwarded-For entry is the
// originating client when the app sits behind a trusted proxy.
func ClientIP(c internal.Context) string {
	if fwd := c.Header("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := c.Header("X-Real-Ip"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}
