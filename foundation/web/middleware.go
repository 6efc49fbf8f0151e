package web

// Middleware adapts a Handler into another Handler, typically adding
// behavior that runs before and/or after the wrapped call.
type Middleware func(Handler) Handler

// wrapMiddleware composes mw around handler in the order given, so
// the first middleware in the slice runs outermost.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if m := mw[i]; m != nil {
			handler = m(handler)
		}
	}
	return handler
}
