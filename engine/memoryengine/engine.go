package memoryengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/x/containerx/pqueue"
	"github.com/kakkerlakgly/adapterkit/message"
)

// ErrUnknownRequest is returned by Respond() when there is no pending request
// with the given correlation token.
var ErrUnknownRequest = errors.New("no pending request with that correlation token")

// Engine is an in-memory messaging engine.
//
// Each batch is executed on its own goroutine once Done() is called on it.
// A batch fails as a whole if any of its operations reports a failure other
// than engine.StatusRejected, in which case none of its operations are
// applied.
type Engine struct {
	// Fault, if non-nil, is called for each operation when a batch is
	// executed. It returns the per-message status to report.
	//
	// A status of engine.StatusRejected is reported without failing the
	// batch, any other negative status aborts the batch.
	Fault func(k engine.Kind, m *message.Message) engine.Status

	// BatchFault, if non-nil, is called when a batch is executed. If it
	// returns a negative status the batch fails as a whole with that status,
	// regardless of the per-message statuses.
	BatchFault func(ops []Operation) engine.Status

	// DoneFault, if non-nil, is called when a batch is submitted. If it
	// returns an error the submission fails and the callback is never
	// invoked.
	DoneFault func(ops []Operation) error

	// ConfirmFault, if non-nil, is called when a commit is confirmed. If it
	// returns an error the confirmation fails.
	ConfirmFault func(committed bool) error

	// Latency is the time each batch takes to execute.
	Latency time.Duration

	// Logger is the target for log messages from the engine.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	wg sync.WaitGroup

	m             sync.Mutex
	history       []Record
	submitted     []*message.Message
	deleted       []*message.Message
	suspended     []*message.Message
	nextTransport []*message.Message
	responses     []Response
	requests      map[string]*pendingRequest
	confirmations []bool
	redeliveries  pqueue.Queue[*redelivery]
	wake          chan struct{}
}

// NewBatch starts a new batch of operations.
func (e *Engine) NewBatch(cb engine.Callback) (engine.Batch, error) {
	if cb == nil {
		panic("batch callback must not be nil")
	}

	return &batch{
		engine:   e,
		callback: cb,
	}, nil
}

// Wait blocks until all submitted batches have been executed and their
// callbacks have returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Redeliver blocks until a resubmitted message is due for redelivery, then
// returns it.
func (e *Engine) Redeliver(ctx context.Context) (*message.Message, error) {
	for {
		e.m.Lock()
		r, ok := e.redeliveries.Peek()
		if ok && !r.at.After(time.Now()) {
			e.redeliveries.Pop()
			e.m.Unlock()
			return r.message, nil
		}
		wake := e.wakeChannel()
		e.m.Unlock()

		if !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wake:
				continue
			}
		}

		if err := sleepUntil(ctx, r.at, wake); err != nil {
			return nil, err
		}
	}
}

// Requeue schedules m, previously returned by Redeliver(), to be redelivered
// again at the given time.
func (e *Engine) Requeue(m *message.Message, at time.Time) error {
	e.m.Lock()
	defer e.m.Unlock()

	e.schedule(m, at)

	return nil
}

// Respond delivers a response to the pending request with the given
// correlation token.
func (e *Engine) Respond(ctx context.Context, token string, response *message.Message) error {
	e.m.Lock()
	req, ok := e.requests[token]
	if ok && !req.expiry.IsZero() && time.Now().After(req.expiry) {
		delete(e.requests, token)
		ok = false
	}
	if ok && req.firstResponseOnly {
		delete(e.requests, token)
	}
	e.m.Unlock()

	if !ok {
		return ErrUnknownRequest
	}

	if req.responder == nil {
		return nil
	}

	return req.responder.Respond(ctx, response)
}

// History returns the batches that have been executed, in order.
func (e *Engine) History() []Record {
	e.m.Lock()
	defer e.m.Unlock()

	return append([]Record(nil), e.history...)
}

// Batches returns the number of batches that have been executed.
func (e *Engine) Batches() int {
	e.m.Lock()
	defer e.m.Unlock()

	return len(e.history)
}

// Submitted returns the messages that have been submitted.
func (e *Engine) Submitted() []*message.Message {
	return e.snapshot(&e.submitted)
}

// Deleted returns the messages that have been deleted.
func (e *Engine) Deleted() []*message.Message {
	return e.snapshot(&e.deleted)
}

// Suspended returns the messages that have been moved to the suspended
// queue.
func (e *Engine) Suspended() []*message.Message {
	return e.snapshot(&e.suspended)
}

// NextTransport returns the messages that have been moved to the next
// transport.
func (e *Engine) NextTransport() []*message.Message {
	return e.snapshot(&e.nextTransport)
}

// Responses returns the response messages that have been submitted.
func (e *Engine) Responses() []Response {
	e.m.Lock()
	defer e.m.Unlock()

	return append([]Response(nil), e.responses...)
}

// Requests returns the correlation tokens of the pending requests.
func (e *Engine) Requests() []string {
	e.m.Lock()
	defer e.m.Unlock()

	tokens := make([]string, 0, len(e.requests))
	for t := range e.requests {
		tokens = append(tokens, t)
	}

	return tokens
}

// Pending returns the number of messages awaiting redelivery.
func (e *Engine) Pending() int {
	e.m.Lock()
	defer e.m.Unlock()

	return e.redeliveries.Len()
}

// Confirmations returns the commit confirmations that have been reported, in
// order.
func (e *Engine) Confirmations() []bool {
	e.m.Lock()
	defer e.m.Unlock()

	return append([]bool(nil), e.confirmations...)
}

func (e *Engine) snapshot(messages *[]*message.Message) []*message.Message {
	e.m.Lock()
	defer e.m.Unlock()

	return append([]*message.Message(nil), (*messages)...)
}

// execute runs a batch on a new goroutine.
func (e *Engine) execute(
	ops []Operation,
	cb engine.Callback,
	tx engine.Transaction,
	c *confirmer,
) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if e.Latency > 0 {
			time.Sleep(e.Latency)
		}

		o := e.outcome(ops)
		applied := o.Status.Succeeded()

		e.m.Lock()
		e.history = append(e.history, Record{
			Operations:    ops,
			Outcome:       o,
			Transactional: tx != nil,
		})
		if applied && tx == nil {
			e.apply(ops, o)
		}
		e.m.Unlock()

		if applied && tx != nil {
			c.staged = accepted(ops, o)
		}
		close(c.executed)

		logging.Debug(
			e.logger(),
			"executed batch of %d operation(s), status: %s",
			len(ops),
			o.Status,
		)

		cb(o)
	}()
}

// outcome computes the result of executing ops.
func (e *Engine) outcome(ops []Operation) engine.Outcome {
	o := engine.Outcome{Status: engine.StatusOK}
	index := map[engine.Kind]int{}

	for _, op := range ops {
		s := engine.StatusOK
		if e.Fault != nil {
			s = e.Fault(op.Kind, op.Message)
		}

		if s.Failed() && s != engine.StatusRejected {
			o.Status = engine.StatusAborted
		}

		i, ok := index[op.Kind]
		if !ok {
			i = len(o.Operations)
			index[op.Kind] = i
			o.Operations = append(o.Operations, engine.OperationStatus{Kind: op.Kind})
		}

		o.Operations[i].Statuses = append(o.Operations[i].Statuses, s)
	}

	if e.BatchFault != nil {
		if s := e.BatchFault(ops); s.Failed() {
			o.Status = s
		}
	}

	return o
}

// confirm records a commit confirmation and applies the staged operations if
// the transaction was committed.
func (e *Engine) confirm(committed bool, staged []Operation) {
	e.m.Lock()
	defer e.m.Unlock()

	e.confirmations = append(e.confirmations, committed)

	if committed {
		e.apply(staged, engine.Outcome{})
	}
}

// apply applies the operations in ops that succeeded according to o.
//
// e.m must be locked.
func (e *Engine) apply(ops []Operation, o engine.Outcome) {
	for _, op := range accepted(ops, o) {
		switch op.Kind {
		case engine.Submit:
			e.submitted = append(e.submitted, op.Message)
		case engine.Delete:
			e.deleted = append(e.deleted, op.Message)
		case engine.Resubmit:
			if n := op.Message.RetryCount(); n > 0 {
				op.Message.SetRetryCount(n - 1)
			}
			e.schedule(op.Message, op.At)
		case engine.MoveToSuspend:
			e.suspended = append(e.suspended, op.Message)
		case engine.MoveToNextTransport:
			e.nextTransport = append(e.nextTransport, op.Message)
		case engine.SubmitRequest:
			if e.requests == nil {
				e.requests = map[string]*pendingRequest{}
			}
			e.requests[op.Token] = &pendingRequest{
				message:           op.Message,
				firstResponseOnly: op.firstResponseOnly,
				expiry:            op.expiry,
				responder:         op.responder,
			}
		case engine.CancelRequest:
			delete(e.requests, op.Token)
		case engine.SubmitResponse:
			e.responses = append(e.responses, Response{
				Request:  op.Request,
				Response: op.Message,
			})
		}
	}
}

// schedule adds m to the redelivery queue.
//
// e.m must be locked.
func (e *Engine) schedule(m *message.Message, at time.Time) {
	if e.redeliveries.Less == nil {
		e.redeliveries.Less = func(a, b *redelivery) bool {
			return a.at.Before(b.at)
		}
	}

	if e.redeliveries.Push(&redelivery{m, at}) && e.wake != nil {
		close(e.wake)
		e.wake = nil
	}
}

// wakeChannel returns a channel that is closed when a message is scheduled
// ahead of all others.
//
// e.m must be locked.
func (e *Engine) wakeChannel() chan struct{} {
	if e.wake == nil {
		e.wake = make(chan struct{})
	}
	return e.wake
}

func (e *Engine) logger() logging.Logger {
	if e.Logger == nil {
		return logging.DefaultLogger
	}
	return e.Logger
}

// accepted returns the operations in ops that succeeded according to o.
//
// An empty outcome accepts every operation.
func accepted(ops []Operation, o engine.Outcome) []Operation {
	if len(o.Operations) == 0 {
		return ops
	}

	var result []Operation
	seen := map[engine.Kind]int{}

	for _, op := range ops {
		i := seen[op.Kind]
		seen[op.Kind]++

		if s := o.StatusesOf(op.Kind); i < len(s) && s[i].Failed() {
			continue
		}

		result = append(result, op)
	}

	return result
}

// sleepUntil blocks until t, ctx is canceled or wake is closed.
//
// Only cancellation of ctx is reported as an error.
func sleepUntil(ctx context.Context, t time.Time, wake <-chan struct{}) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-wake:
			cancel()
		case <-sctx.Done():
		}
	}()

	if err := linger.SleepUntil(sctx, t); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return nil
}

var (
	_ engine.Proxy       = (*Engine)(nil)
	_ engine.Redeliverer = (*Engine)(nil)
)
