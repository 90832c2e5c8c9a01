package fixtures

import (
	"context"
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// ProxyStub is a test implementation of the engine.Proxy interface.
type ProxyStub struct {
	engine.Proxy

	NewBatchFunc func(engine.Callback) (engine.Batch, error)
}

// NewBatch returns a new batch handle.
func (p *ProxyStub) NewBatch(cb engine.Callback) (engine.Batch, error) {
	if p.NewBatchFunc != nil {
		return p.NewBatchFunc(cb)
	}

	if p.Proxy != nil {
		return p.Proxy.NewBatch(cb)
	}

	return &BatchStub{}, nil
}

// BatchStub is a test implementation of the engine.Batch interface.
//
// Operations that have no override and no underlying batch succeed without
// effect.
type BatchStub struct {
	engine.Batch

	SubmitFunc              func(*message.Message) error
	DeleteFunc              func(*message.Message) error
	ResubmitFunc            func(*message.Message, time.Time) error
	MoveToSuspendFunc       func(*message.Message) error
	MoveToNextTransportFunc func(*message.Message) error
	SubmitResponseFunc      func(*message.Message, *message.Message) error
	DoneFunc                func(context.Context, engine.Transaction) (engine.CommitConfirmer, error)
	CloseFunc               func() error
}

// Submit stages a submit operation.
func (b *BatchStub) Submit(m *message.Message) error {
	if b.SubmitFunc != nil {
		return b.SubmitFunc(m)
	}

	if b.Batch != nil {
		return b.Batch.Submit(m)
	}

	return nil
}

// Delete stages a delete operation.
func (b *BatchStub) Delete(m *message.Message) error {
	if b.DeleteFunc != nil {
		return b.DeleteFunc(m)
	}

	if b.Batch != nil {
		return b.Batch.Delete(m)
	}

	return nil
}

// Resubmit stages a resubmit operation.
func (b *BatchStub) Resubmit(m *message.Message, at time.Time) error {
	if b.ResubmitFunc != nil {
		return b.ResubmitFunc(m, at)
	}

	if b.Batch != nil {
		return b.Batch.Resubmit(m, at)
	}

	return nil
}

// MoveToSuspend stages a move-to-suspend operation.
func (b *BatchStub) MoveToSuspend(m *message.Message) error {
	if b.MoveToSuspendFunc != nil {
		return b.MoveToSuspendFunc(m)
	}

	if b.Batch != nil {
		return b.Batch.MoveToSuspend(m)
	}

	return nil
}

// MoveToNextTransport stages a move-to-next-transport operation.
func (b *BatchStub) MoveToNextTransport(m *message.Message) error {
	if b.MoveToNextTransportFunc != nil {
		return b.MoveToNextTransportFunc(m)
	}

	if b.Batch != nil {
		return b.Batch.MoveToNextTransport(m)
	}

	return nil
}

// SubmitResponse stages a submit-response operation.
func (b *BatchStub) SubmitResponse(request, response *message.Message) error {
	if b.SubmitResponseFunc != nil {
		return b.SubmitResponseFunc(request, response)
	}

	if b.Batch != nil {
		return b.Batch.SubmitResponse(request, response)
	}

	return nil
}

// Done submits the batch.
func (b *BatchStub) Done(ctx context.Context, tx engine.Transaction) (engine.CommitConfirmer, error) {
	if b.DoneFunc != nil {
		return b.DoneFunc(ctx, tx)
	}

	if b.Batch != nil {
		return b.Batch.Done(ctx, tx)
	}

	return nil, nil
}

// Close releases the batch handle.
func (b *BatchStub) Close() error {
	if b.CloseFunc != nil {
		return b.CloseFunc()
	}

	if b.Batch != nil {
		return b.Batch.Close()
	}

	return nil
}
