package adapterkit

import (
	"runtime"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/dispatch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/engine/memoryengine"
	"github.com/kakkerlakgly/adapterkit/message"
	"github.com/kakkerlakgly/adapterkit/retry"
)

var (
	// DefaultCascadeDepth is the default number of nested batches used to
	// retry a failed receive-side submission.
	//
	// It is overridden by the WithCascadeDepth() option.
	DefaultCascadeDepth = 10

	// DefaultConcurrencyLimit is the default number of dispatch workers that
	// deliver outbound messages concurrently.
	//
	// It is overridden by the WithConcurrencyLimit() option.
	DefaultConcurrencyLimit = uint(runtime.GOMAXPROCS(0) * 2)

	// DefaultRetryPolicy is the default policy used to schedule the
	// redelivery of outbound messages that have no retry interval.
	//
	// It is overridden by the WithRetryPolicy() option.
	DefaultRetryPolicy = retry.DefaultPolicy

	// DefaultMaxBatchSize is the default number of outbound messages
	// delivered by a single dispatch worker.
	//
	// It is overridden by the WithMaxBatchSize() option.
	DefaultMaxBatchSize = dispatch.DefaultMaxBatchSize

	// DefaultLogger is the default target for log messages produced by the
	// adapter.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// Option configures the behavior of an adapter.
type Option func(*adapterOptions)

// WithEngine returns an adapter option that sets the messaging engine the
// adapter exchanges messages with.
//
// If this option is omitted or e is nil, NewDefaultEngine() is called to
// obtain the engine.
func WithEngine(e engine.Proxy) Option {
	return func(opts *adapterOptions) {
		opts.Engine = e
	}
}

// WithLogger returns an adapter option that sets the target for log messages
// produced by the adapter.
//
// If this option is omitted or l is nil DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(opts *adapterOptions) {
		opts.Logger = l
	}
}

// WithCascadeDepth returns an adapter option that sets the maximum number of
// nested batches used to retry a failed receive-side submission.
//
// If this option is omitted DefaultCascadeDepth is used. A depth of zero
// disables retries.
func WithCascadeDepth(n int) Option {
	if n < 0 {
		panic("cascade depth must not be negative")
	}

	return func(opts *adapterOptions) {
		opts.CascadeDepth = &n
	}
}

// WithConcurrencyLimit returns an adapter option that limits the number of
// dispatch workers that deliver outbound messages at the same time.
//
// If this option is omitted or n is zero DefaultConcurrencyLimit is used.
func WithConcurrencyLimit(n uint) Option {
	return func(opts *adapterOptions) {
		opts.ConcurrencyLimit = n
	}
}

// WithRetryPolicy returns an adapter option that sets the policy used to
// schedule the redelivery of outbound messages that have no retry interval.
//
// If this option is omitted or p is nil DefaultRetryPolicy is used.
func WithRetryPolicy(p retry.Policy) Option {
	return func(opts *adapterOptions) {
		opts.RetryPolicy = p
	}
}

// WithEndpointFactory returns an adapter option that sets the function used
// to create the endpoints that outbound messages are delivered to.
//
// Outbound messages can not be delivered unless this option is provided.
func WithEndpointFactory(fn func() dispatch.Endpoint) Option {
	return func(opts *adapterOptions) {
		opts.NewEndpoint = fn
	}
}

// WithEndpointParameters returns an adapter option that sets the function
// that maps an outbound message to the parameters of its endpoint.
//
// If this option is omitted or fn is nil dispatch.DefaultParameters() is
// used.
func WithEndpointParameters(fn func(*message.Message) dispatch.Parameters) Option {
	return func(opts *adapterOptions) {
		opts.EndpointParameters = fn
	}
}

// WithEndpointConfig returns an adapter option that sets the configuration
// passed to each endpoint when it is opened.
func WithEndpointConfig(config any) Option {
	return func(opts *adapterOptions) {
		opts.EndpointConfig = config
	}
}

// WithMaxBatchSize returns an adapter option that sets the maximum number of
// outbound messages delivered by a single dispatch worker.
//
// If this option is omitted or n is zero DefaultMaxBatchSize is used.
func WithMaxBatchSize(n int) Option {
	if n < 0 {
		panic("batch size must not be negative")
	}

	return func(opts *adapterOptions) {
		opts.MaxBatchSize = n
	}
}

// NewDefaultEngine returns the engine to use when the WithEngine() option is
// omitted.
func NewDefaultEngine(l logging.Logger) engine.Proxy {
	return &memoryengine.Engine{
		Logger: l,
	}
}

// adapterOptions is a container for a fully-resolved set of adapter options.
type adapterOptions struct {
	Engine             engine.Proxy
	Logger             logging.Logger
	CascadeDepth       *int
	ConcurrencyLimit   uint
	RetryPolicy        retry.Policy
	NewEndpoint        func() dispatch.Endpoint
	EndpointParameters func(*message.Message) dispatch.Parameters
	EndpointConfig     any
	MaxBatchSize       int
}

// resolveOptions returns a fully-populated set of adapter options built from
// the given set of option functions.
func resolveOptions(options ...Option) *adapterOptions {
	opts := &adapterOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	if opts.Engine == nil {
		opts.Engine = NewDefaultEngine(opts.Logger)
	}

	if opts.CascadeDepth == nil {
		n := DefaultCascadeDepth
		opts.CascadeDepth = &n
	}

	if opts.ConcurrencyLimit == 0 {
		opts.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if opts.RetryPolicy == nil {
		opts.RetryPolicy = DefaultRetryPolicy
	}

	if opts.EndpointParameters == nil {
		opts.EndpointParameters = dispatch.DefaultParameters
	}

	if opts.MaxBatchSize == 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}

	return opts
}
