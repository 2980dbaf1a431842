package internal

import (
	"fmt"
	"regexp"
)

// Route binds an HTTP method and a path template to a handler and its
// middleware. Routes are created during route-table construction and are
// immutable once the application starts serving requests; the fluent
// Name/Where attachments are the only mutations allowed, and only before
// the table is frozen.
type Route struct {
	method      string
	template    string
	handler     HandlerFunc
	middlewares []Middleware
	name        string
	pattern     *pattern
	constraints map[string]*regexp.Regexp
	table       *routeTable
}

// Method returns the HTTP verb the route is registered under.
func (r *Route) Method() string { return r.method }

// Template returns the normalized path template.
func (r *Route) Template() string { return r.template }

// RouteName returns the optional name attached via Name.
func (r *Route) RouteName() string { return r.name }

// Name attaches a name to the route for reverse lookup and logging.
func (r *Route) Name(name string) *Route {
	r.table.mustBeOpen("name route " + r.template)
	r.name = name
	return r
}

// Where restricts a path parameter to values fully matching the regexp
// fragment. The fragment is anchored internally, so `[0-9]+` means the whole
// captured value must be digits. An invalid fragment or an unknown parameter
// is a configuration error and panics at startup.
func (r *Route) Where(param, expr string) *Route {
	r.table.mustBeOpen("constrain route " + r.template)

	known := false
	for _, p := range r.pattern.params {
		if p.name == param {
			known = true
			break
		}
	}
	if !known {
		panic(fmt.Sprintf("route %s %s has no parameter %q", r.method, r.template, param))
	}

	rx, err := compileConstraint(param, expr)
	if err != nil {
		panic(fmt.Sprintf("route %s %s: %v", r.method, r.template, err))
	}
	if r.constraints == nil {
		r.constraints = make(map[string]*regexp.Regexp)
	}
	r.constraints[param] = rx
	return r
}

// WhereMap attaches multiple constraints at once.
func (r *Route) WhereMap(constraints map[string]string) *Route {
	for param, expr := range constraints {
		r.Where(param, expr)
	}
	return r
}

// match tests a normalized request path against the route's pattern and
// constraints.
func (r *Route) match(path string) (map[string]string, bool) {
	return r.pattern.match(path, r.constraints)
}
