package memoryengine

import (
	"context"
	"sync"
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// batch is the engine.Batch implementation returned by Engine.NewBatch().
type batch struct {
	engine   *Engine
	callback engine.Callback

	m      sync.Mutex
	ops    []Operation
	done   bool
	closed bool
}

func (b *batch) Submit(m *message.Message) error {
	return b.stage(Operation{Kind: engine.Submit, Message: m})
}

func (b *batch) Delete(m *message.Message) error {
	return b.stage(Operation{Kind: engine.Delete, Message: m})
}

func (b *batch) Resubmit(m *message.Message, at time.Time) error {
	return b.stage(Operation{Kind: engine.Resubmit, Message: m, At: at})
}

func (b *batch) MoveToSuspend(m *message.Message) error {
	return b.stage(Operation{Kind: engine.MoveToSuspend, Message: m})
}

func (b *batch) MoveToNextTransport(m *message.Message) error {
	return b.stage(Operation{Kind: engine.MoveToNextTransport, Message: m})
}

func (b *batch) SubmitRequest(
	m *message.Message,
	token string,
	firstResponseOnly bool,
	expiry time.Time,
	r engine.Responder,
) error {
	return b.stage(Operation{
		Kind:              engine.SubmitRequest,
		Message:           m,
		Token:             token,
		firstResponseOnly: firstResponseOnly,
		expiry:            expiry,
		responder:         r,
	})
}

func (b *batch) CancelRequest(token string) error {
	return b.stage(Operation{Kind: engine.CancelRequest, Token: token})
}

func (b *batch) SubmitResponse(request, response *message.Message) error {
	return b.stage(Operation{Kind: engine.SubmitResponse, Message: response, Request: request})
}

func (b *batch) Done(ctx context.Context, tx engine.Transaction) (engine.CommitConfirmer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.m.Lock()

	if b.done || b.closed {
		b.m.Unlock()
		return nil, engine.ErrBatchClosed
	}

	b.done = true
	ops := b.ops
	b.m.Unlock()

	if b.engine.DoneFault != nil {
		if err := b.engine.DoneFault(ops); err != nil {
			return nil, err
		}
	}

	c := &confirmer{
		engine:   b.engine,
		executed: make(chan struct{}),
	}

	b.engine.execute(ops, b.callback, tx, c)

	return c, nil
}

func (b *batch) Close() error {
	b.m.Lock()
	defer b.m.Unlock()

	b.closed = true

	return nil
}

func (b *batch) stage(op Operation) error {
	op.Kind.MustValidate()

	b.m.Lock()
	defer b.m.Unlock()

	if b.done || b.closed {
		return engine.ErrBatchClosed
	}

	b.ops = append(b.ops, op)

	return nil
}
