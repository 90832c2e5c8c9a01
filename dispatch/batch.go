package dispatch

import (
	"context"
	"sync"

	"github.com/kakkerlakgly/adapterkit/gate"
	"github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Batch is a set of outbound messages that are delivered by a single
// worker.
type Batch struct {
	transmitter *Transmitter

	m          sync.Mutex
	messages   []*message.Message
	dispatched bool
	settled    syncx.Event
}

// Submit adds m to the batch.
//
// It returns false if the batch has already been dispatched or is full, in
// which case m is not part of the batch.
func (b *Batch) Submit(m *message.Message) bool {
	b.m.Lock()
	defer b.m.Unlock()

	if b.dispatched || len(b.messages) >= b.transmitter.maxBatchSize() {
		return false
	}

	b.messages = append(b.messages, m)

	return true
}

// Len returns the number of messages in the batch.
func (b *Batch) Len() int {
	b.m.Lock()
	defer b.m.Unlock()

	return len(b.messages)
}

// Dispatch hands the messages in the batch to a worker goroutine.
//
// One activity permit is admitted for each message. If any permit is
// refused, no permits are held and gate.ErrDraining is returned.
//
// The worker is not canceled when ctx is canceled; in-flight messages are
// always retired.
func (b *Batch) Dispatch(ctx context.Context) error {
	b.m.Lock()
	defer b.m.Unlock()

	if b.dispatched {
		return ErrDispatched
	}

	if len(b.messages) == 0 {
		return ErrEmptyBatch
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	t := b.transmitter

	if t.Gate != nil && !admit(t.Gate, len(b.messages)) {
		return gate.ErrDraining
	}

	b.dispatched = true

	w := &worker{
		transmitter: t,
		messages:    b.messages,
		settled:     &b.settled,
	}

	go w.run(context.WithoutCancel(ctx))

	return nil
}

// Wait blocks until the worker has retired every message in the batch and
// the engine has reported the outcome, or until ctx is canceled.
func (b *Batch) Wait(ctx context.Context) error {
	return b.settled.Wait(ctx)
}

var _ GroupGate = (*gate.Gate)(nil)

// admit admits n activities to g.
//
// If g is a GroupGate the permits are admitted as a group. Otherwise they are
// admitted one at a time, and those already admitted are released if any
// permit is refused.
func admit(g Gate, n int) bool {
	if gg, ok := g.(GroupGate); ok {
		return gg.AdmitN(n)
	}

	for i := 0; i < n; i++ {
		if !g.Admit() {
			for ; i > 0; i-- {
				g.Release()
			}
			return false
		}
	}

	return true
}
