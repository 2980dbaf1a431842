package internal

// Chain composes middleware around a terminal handler.
// The first middleware in the list is the outermost: it runs first on the
// way in and last on the way out. A middleware that never calls next
// short-circuits everything after it, including the terminal handler.
//
// The composed handler is built fresh per dispatch from immutable route
// metadata, so it is safe for concurrent use without synchronization.
func Chain(h HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
