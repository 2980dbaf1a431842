// Package internal contains the framework core: the path matcher, route
// table, middleware chain, request dispatcher, and server runtime.
//
// The public API lives in the root clinicore package, which re-exports the
// types defined here. Application code should import the root package.
package internal
