package adapterkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/cascade"
	"github.com/kakkerlakgly/adapterkit/dispatch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/gate"
	"github.com/kakkerlakgly/adapterkit/message"
	"github.com/kakkerlakgly/adapterkit/semaphore"
	"github.com/kakkerlakgly/adapterkit/txn"
	"golang.org/x/sync/errgroup"
)

// Adapter moves messages between a messaging engine and the endpoints of a
// transport.
//
// Inbound messages are submitted to the engine in batches that retry
// failures. Outbound messages are delivered to endpoints by a transmitter.
type Adapter struct {
	opts        *adapterOptions
	gate        *gate.Gate
	transmitter *dispatch.Transmitter

	once sync.Once
	err  error
}

// New returns a new adapter.
func New(options ...Option) *Adapter {
	opts := resolveOptions(options...)
	g := &gate.Gate{}

	return &Adapter{
		opts: opts,
		gate: g,
		transmitter: &dispatch.Transmitter{
			Engine:       opts.Engine,
			Gate:         g,
			NewEndpoint:  opts.NewEndpoint,
			Parameters:   opts.EndpointParameters,
			Config:       opts.EndpointConfig,
			RetryPolicy:  opts.RetryPolicy,
			Semaphore:    semaphore.New(int(opts.ConcurrencyLimit)),
			MaxBatchSize: opts.MaxBatchSize,
			Logger:       opts.Logger,
		},
	}
}

// Engine returns the messaging engine used by the adapter.
func (a *Adapter) Engine() engine.Proxy {
	return a.opts.Engine
}

// Transmitter returns the transmitter that delivers outbound messages.
func (a *Adapter) Transmitter() *dispatch.Transmitter {
	return a.transmitter
}

// SubmitBatch submits inbound messages to the engine and waits for the
// submission, including any retries, to settle.
func (a *Adapter) SubmitBatch(
	ctx context.Context,
	messages []*message.Message,
) (cascade.Outcome, error) {
	return cascade.Submit(
		ctx,
		a.opts.Engine,
		a.gate,
		*a.opts.CascadeDepth,
		messages,
		cascade.WithLogger(a.opts.Logger),
	)
}

// SubmitTransactional submits inbound messages to the engine within tx and
// waits for the transaction to be resolved.
//
// If policy is nil, the transaction is aborted if any message fails.
func (a *Adapter) SubmitTransactional(
	ctx context.Context,
	tx engine.Transaction,
	messages []*message.Message,
	policy txn.Policy,
) (txn.State, error) {
	if policy == nil {
		policy = txn.AbortOnAnyFailure(nil)
	}

	b, err := txn.New(
		a.opts.Engine,
		tx,
		a.gate,
		policy,
		txn.WithLogger(a.opts.Logger),
	)
	if err != nil {
		return txn.Undecided, err
	}

	for _, m := range messages {
		if err := b.AddSubmit(m, nil); err != nil {
			b.Close()
			return txn.Undecided, err
		}
	}

	if err := b.Done(ctx); err != nil {
		return txn.Undecided, err
	}

	return b.Wait(ctx)
}

// Run delivers outbound messages that the engine redelivers until ctx is
// canceled, then terminates the adapter.
//
// Redelivery requires an engine that implements engine.Redeliverer, with
// any other engine Run() simply blocks until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	if r, ok := a.opts.Engine.(engine.Redeliverer); ok {
		g.Go(func() error {
			return a.redeliver(ctx, r)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err := g.Wait()

	if terr := a.Terminate(); terr != nil {
		logging.Log(a.opts.Logger, "unable to terminate adapter: %s", terr)
	}

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// redeliver dispatches each message that r redelivers in its own batch.
//
// A message that cannot be dispatched is requeued so that it is not lost
// when the adapter stops.
func (a *Adapter) redeliver(ctx context.Context, r engine.Redeliverer) error {
	for {
		m, err := r.Redeliver(ctx)
		if err != nil {
			return err
		}

		b := a.transmitter.NewBatch()
		b.Submit(m)

		if err := b.Dispatch(ctx); err != nil {
			logging.Log(
				a.opts.Logger,
				"unable to dispatch redelivered message %s: %s",
				m.ID,
				err,
			)

			if rerr := r.Requeue(m, time.Now()); rerr != nil {
				logging.Log(
					a.opts.Logger,
					"unable to requeue redelivered message %s: %s",
					m.ID,
					rerr,
				)
			}

			if errors.Is(err, gate.ErrDraining) {
				return nil
			}

			return err
		}
	}
}

// Terminate waits for in-flight messages to be retired, then releases the
// adapter's endpoints.
//
// New work is refused as soon as Terminate() is called. It is safe to call
// Terminate() more than once.
func (a *Adapter) Terminate() error {
	a.once.Do(func() {
		a.gate.Drain()

		a.err = a.transmitter.Close()
	})

	return a.err
}
