package batch

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/mlog"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Request accumulates operations that are submitted to the engine as a single
// atomic batch.
//
// Each operation is forwarded to the engine as soon as it is added. When the
// engine has processed the batch, its outcome is combined with the recorded
// operations to produce a Result, which is passed to the request's handler.
type Request struct {
	makeSuccessCalls bool
	handler          func(*Request, Result)
	logger           logging.Logger

	m           sync.Mutex
	handle      engine.Batch
	order       []engine.Kind
	entries     map[engine.Kind][]Entry
	workPending bool
	closed      bool
	status      engine.Status
}

// New returns a new request that submits its operations to p.
func New(p engine.Proxy, options ...Option) (*Request, error) {
	r := &Request{
		entries: map[engine.Kind][]Entry{},
	}

	for _, opt := range options {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logging.DefaultLogger
	}

	h, err := p.NewBatch(r.complete)
	if err != nil {
		return nil, err
	}

	r.handle = h

	return r, nil
}

// MakesSuccessCalls returns true if success hooks are called when the
// request's result is dispatched.
func (r *Request) MakesSuccessCalls() bool {
	return r.makeSuccessCalls
}

// AddSubmit adds an operation that submits m to the engine.
//
// m must have a seekable body.
func (r *Request) AddSubmit(m *message.Message, userData any) error {
	if err := m.CheckSeekable(); err != nil {
		return violation(engine.Submit, err)
	}

	return r.add(
		Entry{Kind: engine.Submit, Message: m, UserData: userData},
		func(b engine.Batch) error {
			return b.Submit(m)
		},
	)
}

// AddDelete adds an operation that removes m from the engine's queue.
func (r *Request) AddDelete(m *message.Message, userData any) error {
	return r.add(
		Entry{Kind: engine.Delete, Message: m, UserData: userData},
		func(b engine.Batch) error {
			return b.Delete(m)
		},
	)
}

// AddResubmit adds an operation that schedules m for redelivery at the given
// time.
func (r *Request) AddResubmit(m *message.Message, at time.Time, userData any) error {
	return r.add(
		Entry{Kind: engine.Resubmit, Message: m, At: at, UserData: userData},
		func(b engine.Batch) error {
			return b.Resubmit(m, at)
		},
	)
}

// AddMoveToSuspend adds an operation that moves m to the suspended queue.
func (r *Request) AddMoveToSuspend(m *message.Message, userData any) error {
	return r.add(
		Entry{Kind: engine.MoveToSuspend, Message: m, UserData: userData},
		func(b engine.Batch) error {
			return b.MoveToSuspend(m)
		},
	)
}

// AddMoveToNextTransport adds an operation that moves m to the next
// transport for its destination.
func (r *Request) AddMoveToNextTransport(m *message.Message, userData any) error {
	return r.add(
		Entry{Kind: engine.MoveToNextTransport, Message: m, UserData: userData},
		func(b engine.Batch) error {
			return b.MoveToNextTransport(m)
		},
	)
}

// AddSubmitRequest adds an operation that submits a request message.
//
// m must have a seekable body.
func (r *Request) AddSubmitRequest(
	m *message.Message,
	token string,
	firstResponseOnly bool,
	expiry time.Time,
	responder engine.Responder,
	userData any,
) error {
	if err := m.CheckSeekable(); err != nil {
		return violation(engine.SubmitRequest, err)
	}

	return r.add(
		Entry{
			Kind:              engine.SubmitRequest,
			Message:           m,
			Token:             token,
			FirstResponseOnly: firstResponseOnly,
			Expiry:            expiry,
			Responder:         responder,
			UserData:          userData,
		},
		func(b engine.Batch) error {
			return b.SubmitRequest(m, token, firstResponseOnly, expiry, responder)
		},
	)
}

// AddCancelRequest adds an operation that cancels the request with the given
// correlation token.
func (r *Request) AddCancelRequest(token string, userData any) error {
	return r.add(
		Entry{Kind: engine.CancelRequest, Token: token, UserData: userData},
		func(b engine.Batch) error {
			return b.CancelRequest(token)
		},
	)
}

// AddSubmitResponse adds an operation that submits response as the response
// to request.
//
// response must have a seekable body.
func (r *Request) AddSubmitResponse(request, response *message.Message, userData any) error {
	if err := response.CheckSeekable(); err != nil {
		return violation(engine.SubmitResponse, err)
	}

	return r.add(
		Entry{Kind: engine.SubmitResponse, Message: response, Request: request, UserData: userData},
		func(b engine.Batch) error {
			return b.SubmitResponse(request, response)
		},
	)
}

// Done submits the batch to the engine.
//
// It returns a ContractViolation if no operations have been added. The
// engine's batch handle is closed once it has been submitted, regardless of
// whether the submission succeeded.
func (r *Request) Done(ctx context.Context, tx engine.Transaction) (engine.CommitConfirmer, error) {
	r.m.Lock()

	if r.closed {
		r.m.Unlock()
		return nil, engine.ErrBatchClosed
	}

	if !r.workPending {
		r.m.Unlock()
		return nil, ContractViolation{
			Operation: "done",
			Reason:    ErrEmptyBatch,
		}
	}

	r.closed = true
	h := r.handle
	r.m.Unlock()

	cc, err := h.Done(ctx, tx)

	if cerr := h.Close(); cerr != nil {
		logging.Log(r.logger, "unable to close engine batch: %s", cerr)
	}

	if err != nil {
		return nil, err
	}

	return cc, nil
}

// Close discards the batch without submitting it.
//
// It has no effect if the batch has already been submitted or closed.
func (r *Request) Close() error {
	r.m.Lock()
	defer r.m.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.handle.Close()
}

// IsEmpty returns true if no operations have been added to the batch.
func (r *Request) IsEmpty() bool {
	r.m.Lock()
	defer r.m.Unlock()

	return !r.workPending
}

// Len returns the number of operations that have been added to the batch.
func (r *Request) Len() int {
	r.m.Lock()
	defer r.m.Unlock()

	n := 0
	for _, entries := range r.entries {
		n += len(entries)
	}

	return n
}

// Status returns the overall status reported by the engine.
//
// It returns engine.StatusOK if the engine has not yet reported an outcome.
func (r *Request) Status() engine.Status {
	r.m.Lock()
	defer r.m.Unlock()

	return r.status
}

// add records e and forwards it to the engine using fwd.
func (r *Request) add(e Entry, fwd func(engine.Batch) error) error {
	r.m.Lock()
	defer r.m.Unlock()

	if r.closed {
		return engine.ErrBatchClosed
	}

	if err := r.checkMixed(e.Kind); err != nil {
		return err
	}

	if err := fwd(r.handle); err != nil {
		return err
	}

	if _, ok := r.entries[e.Kind]; !ok {
		r.order = append(r.order, e.Kind)
	}

	r.entries[e.Kind] = append(r.entries[e.Kind], e)
	r.workPending = true

	mlog.LogOperation(r.logger, e.Kind, e.Message)

	return nil
}

// checkMixed returns an error if adding an operation of kind k would mix
// submissions and response submissions.
func (r *Request) checkMixed(k engine.Kind) error {
	var other engine.Kind

	switch k {
	case engine.Submit:
		other = engine.SubmitResponse
	case engine.SubmitResponse:
		other = engine.Submit
	default:
		return nil
	}

	if len(r.entries[other]) != 0 {
		return violation(k, ErrMixedSubmit)
	}

	return nil
}

// complete is the callback invoked by the engine when the batch has been
// processed.
func (r *Request) complete(o engine.Outcome) {
	r.m.Lock()

	r.status = o.Status
	res := Result{
		Status:     o.Status,
		Operations: make([]OperationResult, 0, len(r.order)),
	}

	for _, k := range r.order {
		statuses := o.StatusesOf(k)
		entries := make([]Entry, len(r.entries[k]))

		for i, e := range r.entries[k] {
			switch {
			case i < len(statuses):
				e.Status = statuses[i]
			case o.Status.Failed():
				e.Status = o.Status
			default:
				e.Status = engine.StatusOK
			}

			entries[i] = e
		}

		res.Operations = append(res.Operations, OperationResult{
			Kind:    k,
			Entries: entries,
		})
	}

	r.m.Unlock()

	for _, e := range res.Failed() {
		mlog.LogFailure(r.logger, e.Kind, e.Message, e.Status)
	}

	if r.handler != nil {
		r.handler(r, res)
	}
}
