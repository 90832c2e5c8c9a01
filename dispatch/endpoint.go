package dispatch

import (
	"context"

	"github.com/kakkerlakgly/adapterkit/message"
)

// Endpoint is a stateful connection to the destination of outbound
// messages.
type Endpoint interface {
	// Open prepares the endpoint to process messages described by p.
	//
	// config is the handler-level configuration of the transmitter.
	Open(ctx context.Context, p Parameters, config any) error

	// ProcessMessage delivers m to the destination.
	//
	// It may return a response message, which is submitted to the engine in
	// place of the delivered message.
	ProcessMessage(ctx context.Context, m *message.Message) (*message.Message, error)

	// ReuseEndpoint returns true if the endpoint may be used again for other
	// messages with the same session key.
	ReuseEndpoint() bool

	// Dispose releases the endpoint's resources.
	Dispose() error
}

// Parameters describes the endpoint used for a message.
type Parameters struct {
	// SessionKey identifies the endpoint. Messages with the same session key
	// share an endpoint if it is reusable, and are never processed
	// concurrently.
	SessionKey string

	// OutboundLocation is the address of the destination.
	OutboundLocation string
}

// DefaultParameters returns the endpoint parameters for m keyed by its
// outbound location.
func DefaultParameters(m *message.Message) Parameters {
	addr := m.OutboundLocation()

	return Parameters{
		SessionKey:       addr,
		OutboundLocation: addr,
	}
}
