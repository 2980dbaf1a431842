package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal"
)

var errTestDatabaseDown = errors.New("database down")

// routesFunc adapts a plain function to the Handler interface.
type routesFunc func(r internal.Router)

func (f routesFunc) Routes(r internal.Router) { f(r) }

// captureHandler registers a single GET / route and runs fn inside it.
type captureHandler struct {
	fn func(c internal.Context)
}

func (h *captureHandler) Routes(r internal.Router) {
	r.GET("/", func(c internal.Context) error {
		h.fn(c)
		return nil
	})
}

// requestVia creates an App with a GET / capture route and dispatches req.
func requestVia(t *testing.T, req *http.Request, opts []internal.Option, fn func(c internal.Context)) *httptest.ResponseRecorder {
	t.Helper()

	h := &captureHandler{fn: fn}
	opts = append(opts, internal.WithHandlers(h))
	app := internal.New(opts...)

	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

// serve builds an App from a route declaration function and dispatches the
// given method/path against it.
func serve(t *testing.T, routes func(r internal.Router), method, target string) *httptest.ResponseRecorder {
	t.Helper()

	app := internal.New(internal.WithHandlers(routesFunc(routes)))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDispatchRegistrationOrder(t *testing.T) {
	t.Parallel()

	t.Run("parameterized route registered first shadows literal", func(t *testing.T) {
		t.Parallel()

		var gotID string
		w := serve(t, func(r internal.Router) {
			r.GET("/users/{id}", func(c internal.Context) error {
				gotID = c.Param("id")
				return c.String(200, "by-id")
			})
			r.GET("/users/me", func(c internal.Context) error {
				return c.String(200, "me")
			})
		}, http.MethodGet, "/users/me")

		require.Equal(t, 200, w.Code)
		require.Equal(t, "by-id", w.Body.String())
		require.Equal(t, "me", gotID)
	})

	t.Run("literal route registered first wins", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/users/me", func(c internal.Context) error {
				return c.String(200, "me")
			})
			r.GET("/users/{id}", func(c internal.Context) error {
				return c.String(200, "by-id")
			})
		}, http.MethodGet, "/users/me")

		require.Equal(t, 200, w.Code)
		require.Equal(t, "me", w.Body.String())
	})
}

func TestDispatchConstraints(t *testing.T) {
	t.Parallel()

	routes := func(r internal.Router) {
		r.GET("/patients/{id}", func(c internal.Context) error {
			return c.String(200, c.Param("id"))
		}).Where("id", `[0-9]+`)
	}

	t.Run("matching value dispatches", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/patients/42")
		require.Equal(t, 200, w.Code)
		require.Equal(t, "42", w.Body.String())
	})

	t.Run("violating value is a non-match", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/patients/abc")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("constraint is full-match anchored", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/patients/42abc")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("later route can catch the rejected value", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/patients/{id}", func(c internal.Context) error {
				return c.String(200, "numeric")
			}).Where("id", `[0-9]+`)
			r.GET("/patients/{slug}", func(c internal.Context) error {
				return c.String(200, "slug:"+c.Param("slug"))
			})
		}, http.MethodGet, "/patients/abc")

		require.Equal(t, 200, w.Code)
		require.Equal(t, "slug:abc", w.Body.String())
	})
}

func TestDispatchPathNormalization(t *testing.T) {
	t.Parallel()

	routes := func(r internal.Router) {
		r.GET("/users/{id}", func(c internal.Context) error {
			return c.String(200, c.Param("id"))
		})
		r.GET("/", func(c internal.Context) error {
			return c.String(200, "root")
		})
	}

	t.Run("duplicate slashes collapse", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "//users///42")
		require.Equal(t, 200, w.Code)
		require.Equal(t, "42", w.Body.String())
	})

	t.Run("trailing slash is stripped", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/users/42/")
		require.Equal(t, 200, w.Code)
		require.Equal(t, "42", w.Body.String())
	})

	t.Run("root path is preserved", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/")
		require.Equal(t, 200, w.Code)
		require.Equal(t, "root", w.Body.String())
	})

	t.Run("literal match is case sensitive", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodGet, "/Users/42")
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDispatchNotFound(t *testing.T) {
	t.Parallel()

	t.Run("structured 404 body", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/known", func(c internal.Context) error { return c.NoContent(204) })
		}, http.MethodGet, "/unknown")

		require.Equal(t, http.StatusNotFound, w.Code)

		body := decodeError(t, w)
		require.Equal(t, false, body["success"])
		require.Equal(t, "resource not found", body["message"])
		require.Equal(t, http.MethodGet, body["method"])
		require.Equal(t, "/unknown", body["path"])
		require.NotContains(t, body, "debug")

		ts, ok := body["timestamp"].(string)
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339, ts)
		require.NoError(t, err)
	})

	t.Run("custom not found handler", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithNotFoundHandler(func(c internal.Context) error {
				return c.String(http.StatusNotFound, "nothing here")
			}),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "nothing here", w.Body.String())
	})
}

func TestDispatchMethodNotAllowed(t *testing.T) {
	t.Parallel()

	routes := func(r internal.Router) {
		r.GET("/patients/{id}", func(c internal.Context) error { return c.NoContent(204) })
	}

	t.Run("path matched under different verb yields 405", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodPost, "/patients/42")
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)

		body := decodeError(t, w)
		require.Equal(t, false, body["success"])
		require.Equal(t, "method not allowed", body["message"])
	})

	t.Run("unmatched path stays 404", func(t *testing.T) {
		t.Parallel()

		w := serve(t, routes, http.MethodPost, "/doctors/42")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("custom method not allowed handler", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithHandlers(routesFunc(routes)),
			internal.WithMethodNotAllowedHandler(func(c internal.Context) error {
				return c.String(http.StatusMethodNotAllowed, "wrong verb")
			}),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/patients/42", nil))

		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
		require.Equal(t, "wrong verb", w.Body.String())
	})
}

func TestDispatchMiddlewareOrder(t *testing.T) {
	t.Parallel()

	record := func(order *[]string, name string) internal.Middleware {
		return func(next internal.HandlerFunc) internal.HandlerFunc {
			return func(c internal.Context) error {
				*order = append(*order, name)
				return next(c)
			}
		}
	}

	t.Run("global then group then route", func(t *testing.T) {
		t.Parallel()

		var order []string
		app := internal.New(
			internal.WithMiddleware(record(&order, "global")),
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.Group("/api", func(r internal.Router) {
					r.GET("/ping", func(c internal.Context) error {
						order = append(order, "handler")
						return c.NoContent(204)
					}, record(&order, "route"))
				}, record(&order, "group"))
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

		require.Equal(t, 204, w.Code)
		require.Equal(t, []string{"global", "group", "route", "handler"}, order)
	})

	t.Run("nested groups run outer to inner", func(t *testing.T) {
		t.Parallel()

		var order []string
		app := internal.New(
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.Group("/a", func(r internal.Router) {
					r.Group("/b", func(r internal.Router) {
						r.GET("/c", func(c internal.Context) error {
							order = append(order, "handler")
							return c.NoContent(204)
						})
					}, record(&order, "inner"))
				}, record(&order, "outer"))
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a/b/c", nil))

		require.Equal(t, 204, w.Code)
		require.Equal(t, []string{"outer", "inner", "handler"}, order)
	})

	t.Run("sibling groups do not leak middleware", func(t *testing.T) {
		t.Parallel()

		var order []string
		app := internal.New(
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.Group("/admin", func(r internal.Router) {
					r.GET("/x", func(c internal.Context) error { return c.NoContent(204) })
				}, record(&order, "admin"))
				r.Group("/public", func(r internal.Router) {
					r.GET("/y", func(c internal.Context) error { return c.NoContent(204) })
				})
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/y", nil))

		require.Equal(t, 204, w.Code)
		require.Empty(t, order)
	})

	t.Run("middleware short-circuits with error", func(t *testing.T) {
		t.Parallel()

		handlerRan := false
		app := internal.New(
			internal.WithMiddleware(func(next internal.HandlerFunc) internal.HandlerFunc {
				return func(c internal.Context) error {
					return internal.ErrUnauthorized("authentication required")
				}
			}),
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/secret", func(c internal.Context) error {
					handlerRan = true
					return c.NoContent(204)
				})
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secret", nil))

		require.False(t, handlerRan)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, "authentication required", decodeError(t, w)["message"])
	})

	t.Run("middleware short-circuits by writing a response", func(t *testing.T) {
		t.Parallel()

		handlerRan := false
		app := internal.New(
			internal.WithMiddleware(func(next internal.HandlerFunc) internal.HandlerFunc {
				return func(c internal.Context) error {
					return c.String(http.StatusTeapot, "short-circuit")
				}
			}),
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/", func(c internal.Context) error {
					handlerRan = true
					return nil
				})
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.False(t, handlerRan)
		require.Equal(t, http.StatusTeapot, w.Code)
		require.Equal(t, "short-circuit", w.Body.String())
	})

	t.Run("global middleware wraps 404 fallback", func(t *testing.T) {
		t.Parallel()

		var order []string
		app := internal.New(
			internal.WithMiddleware(record(&order, "global")),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, []string{"global"}, order)
	})
}

func TestDispatchErrorHandling(t *testing.T) {
	t.Parallel()

	t.Run("HTTPError maps to its status code", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/conflict", func(c internal.Context) error {
				return internal.ErrConflict("already exists")
			})
		}, http.MethodGet, "/conflict")

		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "already exists", decodeError(t, w)["message"])
	})

	t.Run("plain error maps to 500 with generic message", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/boom", func(c internal.Context) error {
				return errTestDatabaseDown
			})
		}, http.MethodGet, "/boom")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		require.Equal(t, "Internal Server Error", body["message"])
		require.NotContains(t, body, "debug")
	})

	t.Run("debug mode exposes the underlying error", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithDebug(true),
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/boom", func(c internal.Context) error {
					return errTestDatabaseDown
				})
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		debug, ok := body["debug"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, errTestDatabaseDown.Error(), debug["error"])
	})

	t.Run("custom error handler intercepts", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				return c.String(http.StatusBadGateway, "handled: "+err.Error())
			}),
			internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/", func(c internal.Context) error {
					return errTestDatabaseDown
				})
			})),
		)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Equal(t, "handled: database down", w.Body.String())
	})

	t.Run("error after response write is not rendered twice", func(t *testing.T) {
		t.Parallel()

		w := serve(t, func(r internal.Router) {
			r.GET("/", func(c internal.Context) error {
				_ = c.String(200, "partial")
				return internal.ErrInternal("too late")
			})
		}, http.MethodGet, "/")

		require.Equal(t, 200, w.Code)
		require.Equal(t, "partial", w.Body.String())
	})
}

func TestRegistrationPanics(t *testing.T) {
	t.Parallel()

	t.Run("unsupported verb", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.Handle("BREW", "/coffee", func(c internal.Context) error { return nil })
			})))
		})
	})

	t.Run("lowercase verb is rejected", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.Handle("get", "/x", func(c internal.Context) error { return nil })
			})))
		})
	})

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/x", nil)
			})))
		})
	})

	t.Run("duplicate path parameter", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/{id}/versions/{id}", func(c internal.Context) error { return nil })
			})))
		})
	})

	t.Run("constraint on unknown parameter", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/{id}", func(c internal.Context) error { return nil }).Where("slug", `[a-z]+`)
			})))
		})
	})

	t.Run("invalid constraint expression", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
				r.GET("/{id}", func(c internal.Context) error { return nil }).Where("id", `[unclosed`)
			})))
		})
	})

	t.Run("mutation after freeze", func(t *testing.T) {
		t.Parallel()

		var rt *internal.Route
		internal.New(internal.WithHandlers(routesFunc(func(r internal.Router) {
			rt = r.GET("/{id}", func(c internal.Context) error { return nil })
		})))

		require.Panics(t, func() { rt.Where("id", `[0-9]+`) })
		require.Panics(t, func() { rt.Name("late") })
	})
}

func TestMultiMethodRegistration(t *testing.T) {
	t.Parallel()

	t.Run("Match registers the listed verbs", func(t *testing.T) {
		t.Parallel()

		routes := func(r internal.Router) {
			r.Match([]string{http.MethodGet, http.MethodPost}, "/form", func(c internal.Context) error {
				return c.String(200, c.Method())
			})
		}

		w := serve(t, routes, http.MethodGet, "/form")
		require.Equal(t, 200, w.Code)
		require.Equal(t, http.MethodGet, w.Body.String())

		w = serve(t, routes, http.MethodPost, "/form")
		require.Equal(t, 200, w.Code)
		require.Equal(t, http.MethodPost, w.Body.String())

		w = serve(t, routes, http.MethodDelete, "/form")
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("Any covers all five verbs", func(t *testing.T) {
		t.Parallel()

		routes := func(r internal.Router) {
			r.Any("/anything", func(c internal.Context) error {
				return c.String(200, c.Method())
			})
		}

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			w := serve(t, routes, method, "/anything")
			require.Equal(t, 200, w.Code, method)
			require.Equal(t, method, w.Body.String())
		}
	})
}

func TestGroupPrefixConcatenation(t *testing.T) {
	t.Parallel()

	w := serve(t, func(r internal.Router) {
		r.Group("/api", func(r internal.Router) {
			r.Group("/v1", func(r internal.Router) {
				r.GET("/patients/{id}", func(c internal.Context) error {
					return c.String(200, c.Param("id"))
				})
			})
		})
	}, http.MethodGet, "/api/v1/patients/7")

	require.Equal(t, 200, w.Code)
	require.Equal(t, "7", w.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("liveness always OK", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithHealthChecks())
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readiness reflects failing check", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithHealthChecks(
			internal.WithReadinessCheck("db", func(ctx context.Context) error {
				return errTestDatabaseDown
			}),
		))
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
