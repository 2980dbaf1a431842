package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal"
	"github.com/clinicore/clinicore/middlewares"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded header wins", "203.0.113.7, 10.0.0.1", "198.51.100.2", "192.0.2.1:1234", "203.0.113.7"},
		{"real ip fallback", "", "198.51.100.2", "192.0.2.1:1234", "198.51.100.2"},
		{"remote addr fallback", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}

			var got string
			dispatch(t, req, nil, func(c internal.Context) error {
				got = middlewares.ClientIP(c)
				return c.NoContent(204)
			})

			require.Equal(t, tc.want, got)
		})
	}
}

func TestRateLimitFailOpen(t *testing.T) {
	t.Parallel()

	// Unreachable redis: the limiter must degrade to unlimited rather than
	// reject traffic.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := dispatch(t, req,
		[]internal.Middleware{middlewares.RateLimit(client,
			middlewares.WithRateLimit(1),
		)},
		func(c internal.Context) error {
			return c.String(200, "served")
		},
	)

	require.Equal(t, 200, w.Code)
	require.Equal(t, "served", w.Body.String())
}
