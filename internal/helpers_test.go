package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal"
)

func TestContextValue(t *testing.T) {
	t.Parallel()

	type key struct{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	requestVia(t, req, nil, func(c internal.Context) {
		c.Set(key{}, "stored")

		require.Equal(t, "stored", internal.ContextValue[string](c, key{}))
		// Type mismatch and unknown key both fall back to the zero value.
		require.Zero(t, internal.ContextValue[int](c, key{}))
		require.Empty(t, internal.ContextValue[string](c, "missing"))
	})
}

func TestParamCoercion(t *testing.T) {
	t.Parallel()

	serveParam := func(t *testing.T, target string, fn func(c internal.Context)) {
		t.Helper()

		app := internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
			r.GET("/items/{id}", func(c internal.Context) error {
				fn(c)
				return nil
			})
		})))
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	t.Run("int64", func(t *testing.T) {
		t.Parallel()
		serveParam(t, "/items/42", func(c internal.Context) {
			require.Equal(t, int64(42), internal.Param[int64](c, "id"))
		})
	})

	t.Run("string passthrough", func(t *testing.T) {
		t.Parallel()
		serveParam(t, "/items/abc", func(c internal.Context) {
			require.Equal(t, "abc", internal.Param[string](c, "id"))
		})
	})

	t.Run("failed conversion yields zero", func(t *testing.T) {
		t.Parallel()
		serveParam(t, "/items/abc", func(c internal.Context) {
			require.Zero(t, internal.Param[int](c, "id"))
		})
	})
}

func TestQueryCoercion(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?page=3&active=true&ratio=0.5&bad=x", nil)
	requestVia(t, req, nil, func(c internal.Context) {
		require.Equal(t, 3, internal.Query[int](c, "page"))
		require.Equal(t, int64(3), internal.Query[int64](c, "page"))
		require.True(t, internal.Query[bool](c, "active"))
		require.InEpsilon(t, 0.5, internal.Query[float64](c, "ratio"), 1e-9)
		require.Zero(t, internal.Query[int](c, "bad"))
		require.Zero(t, internal.Query[int](c, "missing"))
	})
}
