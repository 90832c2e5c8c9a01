package batch

import "github.com/dogmatiq/dodeca/logging"

// Option configures the behavior of a Request.
type Option func(*Request)

// WithSuccessCalls returns an option that controls whether success hooks are
// called when the request's result is dispatched.
//
// By default, only failures are reported.
func WithSuccessCalls(enabled bool) Option {
	return func(r *Request) {
		r.makeSuccessCalls = enabled
	}
}

// WithHandler returns an option that sets the function that is called with
// the result of the batch.
func WithHandler(fn func(*Request, Result)) Option {
	return func(r *Request) {
		r.handler = fn
	}
}

// WithHooks returns an option that dispatches the result of the batch to h.
//
// It is a convenience for WithHandler() that uses the request's own success
// call setting.
func WithHooks(h Hooks) Option {
	return WithHandler(func(r *Request, res Result) {
		res.Dispatch(h, r.MakesSuccessCalls())
	})
}

// WithLogger returns an option that sets the logger used by the request.
//
// If this option is omitted or l is nil, logging.DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(r *Request) {
		r.logger = l
	}
}
