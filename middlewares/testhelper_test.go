package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicore/clinicore/internal"
)

// routesFunc adapts a function to the Handler interface.
type routesFunc func(r internal.Router)

func (f routesFunc) Routes(r internal.Router) { f(r) }

// dispatch builds an app with the given global middleware and a single
// GET / handler, then serves req through the full chain.
func dispatch(t *testing.T, req *http.Request, mw []internal.Middleware, h internal.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	app := internal.New(
		internal.WithMiddleware(mw...),
		internal.WithHandlers(routesFunc(func(r internal.Router) {
			r.GET("/", h)
		})),
	)

	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}
