package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	"github.com/kakkerlakgly/adapterkit/message"
	"github.com/kakkerlakgly/adapterkit/retry"
	"github.com/kakkerlakgly/adapterkit/semaphore"
	"go.uber.org/multierr"
)

// DefaultMaxBatchSize is the default number of messages in a batch.
const DefaultMaxBatchSize = 50

// DefaultResponseDepth is the default number of follow-up batches used to
// retry the operations of a failed response batch.
const DefaultResponseDepth = 3

// Gate is the interface used to record in-flight messages.
//
// It is implemented by *gate.Gate.
type Gate interface {
	Admit() bool
	Release()
}

// GroupGate is a Gate that can admit several activities at once, without
// admitting any of them if the group is refused.
//
// It is implemented by *gate.Gate.
type GroupGate interface {
	Gate
	AdmitN(n int) bool
}

// Transmitter delivers batches of outbound messages to their endpoints and
// reports the outcome of each delivery to the engine.
type Transmitter struct {
	// Engine is the engine that outcomes are reported to.
	Engine engine.Proxy

	// Gate records the messages that are in-flight. It may be nil.
	Gate Gate

	// NewEndpoint returns a new, unopened endpoint.
	NewEndpoint func() Endpoint

	// Parameters returns the endpoint parameters for a message. If it is nil,
	// DefaultParameters() is used.
	Parameters func(*message.Message) Parameters

	// Config is passed to each endpoint when it is opened.
	Config any

	// RetryPolicy determines the redelivery time of messages that have no
	// retry interval. If it is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy

	// Semaphore limits the number of workers that process batches
	// concurrently.
	Semaphore semaphore.Semaphore

	// MaxBatchSize is the maximum number of messages in a batch. If it is
	// zero, DefaultMaxBatchSize is used.
	MaxBatchSize int

	// ResponseDepth is the maximum number of follow-up batches used to retry
	// the operations of a failed response batch. If it is zero,
	// DefaultResponseDepth is used.
	ResponseDepth int

	// Logger is the target for log messages from the transmitter.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	sessions syncx.MutexNamespace

	m         sync.Mutex
	closed    bool
	endpoints map[string]Endpoint
}

// NewBatch returns a new, empty batch.
func (t *Transmitter) NewBatch() *Batch {
	return &Batch{
		transmitter: t,
	}
}

// Endpoint returns the endpoint used to deliver m.
//
// Messages with the same session key are processed one at a time; release
// must be called once the caller has finished with the endpoint. A reusable
// endpoint is cached until the transmitter is closed, any other endpoint is
// disposed of by release.
func (t *Transmitter) Endpoint(
	ctx context.Context,
	m *message.Message,
) (_ Endpoint, release func(), _ error) {
	p := t.parameters(m)

	unlock, err := t.sessions.Lock(ctx, p.SessionKey)
	if err != nil {
		return nil, nil, err
	}

	ep, cached, err := t.lookupOrCreate(ctx, p)
	if err != nil {
		unlock()
		return nil, nil, err
	}

	return ep, func() {
		if !cached {
			if err := ep.Dispose(); err != nil {
				logging.Log(
					t.logger(),
					"unable to dispose of endpoint for %s: %s",
					p.SessionKey,
					err,
				)
			}
		}

		unlock()
	}, nil
}

// lookupOrCreate returns the cached endpoint for p, or opens a new one.
func (t *Transmitter) lookupOrCreate(
	ctx context.Context,
	p Parameters,
) (Endpoint, bool, error) {
	t.m.Lock()
	defer t.m.Unlock()

	if t.closed {
		return nil, false, ErrClosed
	}

	if ep, ok := t.endpoints[p.SessionKey]; ok {
		return ep, true, nil
	}

	if t.NewEndpoint == nil {
		return nil, false, errors.New("transmitter has no endpoint factory")
	}

	ep := t.NewEndpoint()
	if err := ep.Open(ctx, p, t.Config); err != nil {
		return nil, false, multierr.Append(err, ep.Dispose())
	}

	if !ep.ReuseEndpoint() {
		return ep, false, nil
	}

	if t.endpoints == nil {
		t.endpoints = map[string]Endpoint{}
	}
	t.endpoints[p.SessionKey] = ep

	return ep, true, nil
}

// Close disposes of the cached endpoints.
//
// Endpoints can not be obtained from the transmitter once it is closed.
func (t *Transmitter) Close() error {
	t.m.Lock()
	defer t.m.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	var err error
	for _, ep := range t.endpoints {
		err = multierr.Append(err, ep.Dispose())
	}

	t.endpoints = nil

	return err
}

func (t *Transmitter) parameters(m *message.Message) Parameters {
	if t.Parameters != nil {
		return t.Parameters(m)
	}

	return DefaultParameters(m)
}

func (t *Transmitter) maxBatchSize() int {
	if t.MaxBatchSize > 0 {
		return t.MaxBatchSize
	}

	return DefaultMaxBatchSize
}

func (t *Transmitter) responseDepth() int {
	if t.ResponseDepth > 0 {
		return t.ResponseDepth
	}

	return DefaultResponseDepth
}

func (t *Transmitter) retryPolicy() retry.Policy {
	if t.RetryPolicy != nil {
		return t.RetryPolicy
	}

	return retry.DefaultPolicy
}

func (t *Transmitter) logger() logging.Logger {
	if t.Logger != nil {
		return t.Logger
	}

	return logging.DefaultLogger
}
