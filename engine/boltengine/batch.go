package boltengine

import (
	"context"
	"sync"
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// batch is the engine.Batch implementation returned by Engine.NewBatch().
//
// Messages are encoded when they are staged, so later changes to a message
// or its body do not affect the batch.
type batch struct {
	engine   *Engine
	callback engine.Callback

	m      sync.Mutex
	ops    []operation
	done   bool
	closed bool
}

func (b *batch) Submit(m *message.Message) error {
	return b.stageMessage(engine.Submit, m, nil)
}

func (b *batch) Delete(m *message.Message) error {
	return b.stage(operation{kind: engine.Delete, key: m.ID})
}

func (b *batch) Resubmit(m *message.Message, at time.Time) error {
	return b.stageMessage(engine.Resubmit, m, func(r *record) {
		r.Due = at.UnixNano()

		// The engine consumes one retry for each resubmission.
		if n := m.RetryCount(); n > 0 {
			r.Properties[message.RetryCountProperty] = n - 1
		}
	})
}

func (b *batch) MoveToSuspend(m *message.Message) error {
	return b.stageMessage(engine.MoveToSuspend, m, nil)
}

func (b *batch) MoveToNextTransport(m *message.Message) error {
	return b.stageMessage(engine.MoveToNextTransport, m, nil)
}

func (b *batch) SubmitRequest(
	m *message.Message,
	token string,
	firstResponseOnly bool,
	expiry time.Time,
	_ engine.Responder,
) error {
	return b.stageMessage(engine.SubmitRequest, m, func(r *record) {
		r.Token = token
		r.FirstResponseOnly = firstResponseOnly
		if !expiry.IsZero() {
			r.Expiry = expiry.UnixNano()
		}
	})
}

func (b *batch) CancelRequest(token string) error {
	return b.stage(operation{kind: engine.CancelRequest, key: token})
}

func (b *batch) SubmitResponse(request, response *message.Message) error {
	return b.stageMessage(engine.SubmitResponse, response, func(r *record) {
		r.RequestID = request.ID
	})
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

// stageMessage stages an operation that stores the record of m. fn, if
// non-nil, amends the record before it is encoded.
func (b *batch) stageMessage(k engine.Kind, m *message.Message, fn func(*record)) error {
	r, err := newRecord(m)
	if err != nil {
		return err
	}

	if fn != nil {
		fn(&r)
	}

	data, err := marshalRecord(r)
	if err != nil {
		return err
	}

	return b.stage(operation{
		kind: k,
		key:  m.ID,
		due:  time.Unix(0, r.Due),
		data: data,
	})
}

func (b *batch) stage(op operation) error {
	op.kind.MustValidate()

	b.m.Lock()
	defer b.m.Unlock()

	if b.done || b.closed {
		return engine.ErrBatchClosed
	}

	b.ops = append(b.ops, op)

	return nil
}
