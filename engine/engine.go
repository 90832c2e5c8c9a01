package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kakkerlakgly/adapterkit/message"
)

// ErrBatchClosed is returned when an operation is performed on a batch that
// has already been submitted or closed.
var ErrBatchClosed = errors.New("batch is closed")

// Proxy is the entry point to a messaging engine.
type Proxy interface {
	// NewBatch starts a new batch of operations. cb is invoked when the
	// engine has processed the batch.
	NewBatch(cb Callback) (Batch, error)
}

// Batch is an engine-side handle to a set of operations that are executed
// atomically.
//
// Each operation is forwarded to the engine as soon as it is staged, the
// batch is not executed until Done() is called.
type Batch interface {
	// Submit stages submission of a new inbound message.
	Submit(m *message.Message) error

	// Delete stages removal of a message from the engine's queue.
	Delete(m *message.Message) error

	// Resubmit stages redelivery of m at the given time.
	Resubmit(m *message.Message, at time.Time) error

	// MoveToSuspend stages moving m to the suspended queue.
	MoveToSuspend(m *message.Message) error

	// MoveToNextTransport stages moving m to the next transport for its
	// destination.
	MoveToNextTransport(m *message.Message) error

	// SubmitRequest stages submission of a request message. Responses to the
	// request are delivered to r until the request expires or is canceled.
	SubmitRequest(
		m *message.Message,
		token string,
		firstResponseOnly bool,
		expiry time.Time,
		r Responder,
	) error

	// CancelRequest stages cancelation of the request with the given
	// correlation token.
	CancelRequest(token string) error

	// SubmitResponse stages submission of a response to a request message
	// that was delivered by the engine.
	SubmitResponse(request, response *message.Message) error

	// Done submits the batch for execution.
	//
	// If tx is non-nil the batch participates in that transaction and the
	// engine does not consider its effects final until the returned
	// confirmer is used to report the outcome of the transaction.
	Done(ctx context.Context, tx Transaction) (CommitConfirmer, error)

	// Close releases the resources held by the batch handle.
	Close() error
}

// CommitConfirmer reports the outcome of a transaction back to the engine.
type CommitConfirmer interface {
	ConfirmCommit(ctx context.Context, committed bool) error
}

// Transaction is a two-phase transaction that an engine batch can
// participate in.
type Transaction interface {
	// ID returns a unique identifier for the transaction.
	ID() string

	// Prepare is the first phase of the commit.
	Prepare(ctx context.Context) error

	// Commit makes the transaction's effects durable.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's effects.
	Rollback(ctx context.Context) error
}

// Responder receives the responses to a request message.
type Responder interface {
	Respond(ctx context.Context, response *message.Message) error
}

// ResponderFunc is an adaptor to allow the use of an ordinary function as a
// Responder.
type ResponderFunc func(ctx context.Context, response *message.Message) error

// Respond calls fn(ctx, response).
func (fn ResponderFunc) Respond(ctx context.Context, response *message.Message) error {
	return fn(ctx, response)
}

// Redeliverer is an engine that can hand back messages whose scheduled
// redelivery time has been reached.
type Redeliverer interface {
	// Redeliver blocks until a message is due for redelivery, then returns
	// it.
	Redeliver(ctx context.Context) (*message.Message, error)

	// Requeue schedules a message returned by Redeliver() to be redelivered
	// again at the given time, without consuming its retry budget. It is used
	// when the message could not be handed to a worker.
	Requeue(m *message.Message, at time.Time) error
}
