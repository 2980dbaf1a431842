package internal

import (
	"fmt"
	"net/http"
	"slices"
)

// Verbs supported for route registration. Matching against the request
// method is an exact string comparison; net/http delivers methods in their
// canonical uppercase form, and registration rejects anything else.
var supportedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Router is the interface handlers use to declare routes.
// It provides HTTP method routing and prefix/middleware grouping.
type Router interface {
	// GET registers a handler for GET requests.
	GET(path string, h HandlerFunc, mw ...Middleware) *Route

	// POST registers a handler for POST requests.
	POST(path string, h HandlerFunc, mw ...Middleware) *Route

	// PUT registers a handler for PUT requests.
	PUT(path string, h HandlerFunc, mw ...Middleware) *Route

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h HandlerFunc, mw ...Middleware) *Route

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h HandlerFunc, mw ...Middleware) *Route

	// Handle registers a handler for an explicit HTTP verb.
	// An unsupported verb panics: it is a configuration error surfaced at
	// startup, never at request time.
	Handle(method, path string, h HandlerFunc, mw ...Middleware) *Route

	// Match registers the same handler under several verbs and returns the
	// created routes in verb order.
	Match(methods []string, path string, h HandlerFunc, mw ...Middleware) []*Route

	// Any registers the handler under all five supported verbs.
	Any(path string, h HandlerFunc, mw ...Middleware) []*Route

	// Group runs fn against a child router whose routes share the given
	// path prefix and middleware. The child carries its own immutable
	// {prefix, middleware} scope; nothing is mutated on the parent.
	Group(prefix string, fn func(r Router), mw ...Middleware)

	// Use appends middleware applied to routes registered through this
	// router after the call.
	Use(mw ...Middleware)
}

// routeTable is the ordered route registry. It is built once at startup and
// frozen before the application serves its first request, so lookups need no
// synchronization.
type routeTable struct {
	routes []*Route
	frozen bool
}

func (t *routeTable) mustBeOpen(action string) {
	if t.frozen {
		panic("route table is frozen: cannot " + action)
	}
}

func (t *routeTable) freeze() {
	t.frozen = true
}

// lookup scans routes in registration order and returns the first route
// whose method matches exactly and whose pattern and constraints accept the
// normalized path. The second return carries the captured parameters.
// pathMatched reports whether any route accepted the path under a different
// verb, which the dispatcher maps to 405 rather than 404.
//
// First-match-wins over registration order is a documented contract: more
// specific routes must be registered before catch-alls. The table does not
// reorder or score anything.
func (t *routeTable) lookup(method, path string) (route *Route, params map[string]string, pathMatched bool) {
	for _, rt := range t.routes {
		captured, ok := rt.match(path)
		if !ok {
			continue
		}
		if rt.method != method {
			pathMatched = true
			continue
		}
		return rt, captured, true
	}
	return nil, nil, pathMatched
}

// routerScope implements Router. Each Group call derives a child scope with
// the concatenated prefix and the combined middleware list; scopes share the
// underlying table but never mutate each other.
type routerScope struct {
	table       *routeTable
	prefix      string
	middlewares []Middleware
}

func newRouterScope(table *routeTable) *routerScope {
	return &routerScope{table: table, prefix: "/"}
}

func (r *routerScope) GET(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(http.MethodGet, path, h, mw...)
}

func (r *routerScope) POST(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(http.MethodPost, path, h, mw...)
}

func (r *routerScope) PUT(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(http.MethodPut, path, h, mw...)
}

func (r *routerScope) PATCH(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(http.MethodPatch, path, h, mw...)
}

func (r *routerScope) DELETE(path string, h HandlerFunc, mw ...Middleware) *Route {
	return r.Handle(http.MethodDelete, path, h, mw...)
}

func (r *routerScope) Handle(method, path string, h HandlerFunc, mw ...Middleware) *Route {
	r.table.mustBeOpen("register route " + method + " " + path)

	if !slices.Contains(supportedMethods, method) {
		panic(fmt.Sprintf("unsupported HTTP verb %q for route %q", method, path))
	}
	if h == nil {
		panic(fmt.Sprintf("nil handler for route %s %s", method, path))
	}

	template := JoinPaths(r.prefix, path)
	pat, err := compilePattern(template)
	if err != nil {
		panic(fmt.Sprintf("register route %s %s: %v", method, template, err))
	}

	// Scope middleware runs before route-specific middleware so broader
	// gates (auth) apply ahead of narrower ones (validation).
	combined := make([]Middleware, 0, len(r.middlewares)+len(mw))
	combined = append(combined, r.middlewares...)
	combined = append(combined, mw...)

	rt := &Route{
		method:      method,
		template:    template,
		handler:     h,
		middlewares: combined,
		pattern:     pat,
		table:       r.table,
	}
	r.table.routes = append(r.table.routes, rt)
	return rt
}

func (r *routerScope) Match(methods []string, path string, h HandlerFunc, mw ...Middleware) []*Route {
	routes := make([]*Route, 0, len(methods))
	for _, method := range methods {
		routes = append(routes, r.Handle(method, path, h, mw...))
	}
	return routes
}

func (r *routerScope) Any(path string, h HandlerFunc, mw ...Middleware) []*Route {
	return r.Match(supportedMethods, path, h, mw...)
}

func (r *routerScope) Group(prefix string, fn func(Router), mw ...Middleware) {
	child := &routerScope{
		table:       r.table,
		prefix:      JoinPaths(r.prefix, prefix),
		middlewares: append(slices.Clone(r.middlewares), mw...),
	}
	fn(child)
}

func (r *routerScope) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}
