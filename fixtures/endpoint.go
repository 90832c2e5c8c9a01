package fixtures

import (
	"context"

	"github.com/kakkerlakgly/adapterkit/dispatch"
	"github.com/kakkerlakgly/adapterkit/message"
)

// EndpointStub is a test implementation of the dispatch.Endpoint interface.
//
// Without overrides it accepts every message, produces no response and is
// not reusable.
type EndpointStub struct {
	dispatch.Endpoint

	OpenFunc           func(context.Context, dispatch.Parameters, any) error
	ProcessMessageFunc func(context.Context, *message.Message) (*message.Message, error)
	ReuseEndpointFunc  func() bool
	DisposeFunc        func() error
}

// Open prepares the endpoint to process messages.
func (e *EndpointStub) Open(ctx context.Context, p dispatch.Parameters, config any) error {
	if e.OpenFunc != nil {
		return e.OpenFunc(ctx, p, config)
	}

	if e.Endpoint != nil {
		return e.Endpoint.Open(ctx, p, config)
	}

	return nil
}

// ProcessMessage delivers m to the destination.
func (e *EndpointStub) ProcessMessage(ctx context.Context, m *message.Message) (*message.Message, error) {
	if e.ProcessMessageFunc != nil {
		return e.ProcessMessageFunc(ctx, m)
	}

	if e.Endpoint != nil {
		return e.Endpoint.ProcessMessage(ctx, m)
	}

	return nil, nil
}

// ReuseEndpoint returns true if the endpoint may be reused.
func (e *EndpointStub) ReuseEndpoint() bool {
	if e.ReuseEndpointFunc != nil {
		return e.ReuseEndpointFunc()
	}

	if e.Endpoint != nil {
		return e.Endpoint.ReuseEndpoint()
	}

	return false
}

// Dispose releases the endpoint's resources.
func (e *EndpointStub) Dispose() error {
	if e.DisposeFunc != nil {
		return e.DisposeFunc()
	}

	if e.Endpoint != nil {
		return e.Endpoint.Dispose()
	}

	return nil
}
