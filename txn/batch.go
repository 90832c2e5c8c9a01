package txn

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/batch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/gate"
	"github.com/kakkerlakgly/adapterkit/internal/mlog"
	"github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Event is a one-shot signal that is set once a transaction has been
// resolved. It can be shared between batches whose completions must be
// observed in order.
type Event = syncx.Event

// Batch is a batch of operations that participates in a transaction.
//
// The transaction is committed or rolled back exactly once, after the
// batch's policy has reached a decision. A policy may defer the decision to
// follow-up batches that share the transaction.
type Batch struct {
	req    *batch.Request
	proxy  engine.Proxy
	policy Policy
	tree   *tree
	root   bool
	logger logging.Logger

	ready     syncx.Event // set once confirmer is known
	confirmer engine.CommitConfirmer
}

// tree is the state shared by a batch and its follow-ups.
type tree struct {
	tx      engine.Transaction
	gate    *gate.Gate
	ordered *Event
	logger  logging.Logger

	m   sync.Mutex
	ctx context.Context

	once     sync.Once
	state    State
	resolved syncx.Event
}

// Option configures a transactional batch.
type Option func(*tree)

// WithOrderedEvent returns an option that sets an event that is signaled
// once the transaction has been resolved.
func WithOrderedEvent(e *Event) Option {
	return func(t *tree) {
		t.ordered = e
	}
}

// WithLogger returns an option that sets the logger used by the batch.
func WithLogger(l logging.Logger) Option {
	return func(t *tree) {
		t.logger = l
	}
}

// New returns a new transactional batch.
//
// Submitting the batch admits one activity permit from g, which is released
// when the transaction is resolved. g may be nil.
func New(
	p engine.Proxy,
	tx engine.Transaction,
	g *gate.Gate,
	policy Policy,
	options ...Option,
) (*Batch, error) {
	if tx == nil {
		panic("transaction must not be nil")
	}

	t := &tree{
		tx:   tx,
		gate: g,
	}

	for _, opt := range options {
		opt(t)
	}

	if t.logger == nil {
		t.logger = logging.DefaultLogger
	}

	return newBatch(p, t, policy, true)
}

func newBatch(p engine.Proxy, t *tree, policy Policy, root bool) (*Batch, error) {
	b := &Batch{
		proxy:  p,
		policy: policy,
		tree:   t,
		root:   root,
		logger: t.logger,
	}

	req, err := batch.New(
		p,
		batch.WithLogger(t.logger),
		batch.WithHandler(b.complete),
	)
	if err != nil {
		return nil, err
	}

	b.req = req

	return b, nil
}

// FollowUp returns a new batch that participates in the same transaction.
//
// A policy that submits a follow-up batch returns a pending decision, the
// transaction is then resolved by the follow-up's policy.
func (b *Batch) FollowUp(policy Policy) (*Batch, error) {
	return newBatch(b.proxy, b.tree, policy, false)
}

// Transaction returns the transaction the batch participates in.
func (b *Batch) Transaction() engine.Transaction {
	return b.tree.tx
}

// AddSubmit adds an operation that submits m to the engine.
func (b *Batch) AddSubmit(m *message.Message, userData any) error {
	return b.req.AddSubmit(m, userData)
}

// AddDelete adds an operation that removes m from the engine's queue.
func (b *Batch) AddDelete(m *message.Message, userData any) error {
	return b.req.AddDelete(m, userData)
}

// AddResubmit adds an operation that schedules m for redelivery.
func (b *Batch) AddResubmit(m *message.Message, at time.Time, userData any) error {
	return b.req.AddResubmit(m, at, userData)
}

// AddMoveToSuspend adds an operation that moves m to the suspended queue.
func (b *Batch) AddMoveToSuspend(m *message.Message, userData any) error {
	return b.req.AddMoveToSuspend(m, userData)
}

// AddMoveToNextTransport adds an operation that moves m to the next
// transport.
func (b *Batch) AddMoveToNextTransport(m *message.Message, userData any) error {
	return b.req.AddMoveToNextTransport(m, userData)
}

// AddSubmitRequest adds an operation that submits a request message.
func (b *Batch) AddSubmitRequest(
	m *message.Message,
	token string,
	firstResponseOnly bool,
	expiry time.Time,
	responder engine.Responder,
	userData any,
) error {
	return b.req.AddSubmitRequest(m, token, firstResponseOnly, expiry, responder, userData)
}

// AddCancelRequest adds an operation that cancels a request.
func (b *Batch) AddCancelRequest(token string, userData any) error {
	return b.req.AddCancelRequest(token, userData)
}

// AddSubmitResponse adds an operation that submits a response to request.
func (b *Batch) AddSubmitResponse(request, response *message.Message, userData any) error {
	return b.req.AddSubmitResponse(request, response, userData)
}

// IsEmpty returns true if no operations have been added to the batch.
func (b *Batch) IsEmpty() bool {
	return b.req.IsEmpty()
}

// Len returns the number of operations in the batch.
func (b *Batch) Len() int {
	return b.req.Len()
}

// Close discards the batch without submitting it.
func (b *Batch) Close() error {
	return b.req.Close()
}

// Done submits the batch to the engine within the transaction.
//
// For a batch returned by New(), one activity permit is admitted first. It
// returns gate.ErrDraining if the gate refuses entry. If the submission
// fails, the transaction is rolled back.
func (b *Batch) Done(ctx context.Context) error {
	if v, ok := b.policy.(interface{ validate(*Batch) error }); ok {
		if err := v.validate(b); err != nil {
			return err
		}
	}

	if b.root {
		if b.tree.gate != nil && !b.tree.gate.Admit() {
			b.req.Close()
			return gate.ErrDraining
		}

		b.tree.m.Lock()
		b.tree.ctx = context.WithoutCancel(ctx)
		b.tree.m.Unlock()
	}

	cc, err := b.req.Done(ctx, b.tree.tx)
	b.confirmer = cc
	b.ready.Set()

	if err != nil {
		if b.root {
			b.tree.resolve(b, Abort)
		}
		return err
	}

	return nil
}

// Resolved returns a channel that is closed once the transaction has been
// resolved.
func (b *Batch) Resolved() <-chan struct{} {
	return b.tree.resolved.Done()
}

// Wait blocks until the transaction has been resolved, then returns the
// final state.
func (b *Batch) Wait(ctx context.Context) (State, error) {
	if err := b.tree.resolved.Wait(ctx); err != nil {
		return Undecided, err
	}

	return b.tree.state, nil
}

// complete is the handler for the batch's result.
func (b *Batch) complete(_ *batch.Request, r batch.Result) {
	d := b.policy.Decide(b.tree.context(), b, r)

	if d.Pending {
		return
	}

	b.tree.resolve(b, d.State)
}

func (t *tree) context() context.Context {
	t.m.Lock()
	defer t.m.Unlock()

	if t.ctx == nil {
		return context.Background()
	}

	return t.ctx
}

// resolve commits or rolls back the transaction and reports the outcome
// using b's commit confirmer.
//
// Only the first call has any effect.
func (t *tree) resolve(b *Batch, s State) {
	t.once.Do(func() {
		ctx := t.context()

		<-b.ready.Done()
		cc := b.confirmer

		if s == Undecided {
			s = Abort
		}

		err := t.finish(ctx, s == Commit)
		if err != nil && s == Commit {
			s = Abort
			if rerr := t.tx.Rollback(ctx); rerr != nil {
				logging.Log(t.logger, "unable to roll back transaction %s: %s", t.tx.ID(), rerr)
			}
		}

		if cc != nil {
			if err == nil {
				err = cc.ConfirmCommit(ctx, s == Commit)
			}

			if err != nil {
				logging.Log(t.logger, "unable to resolve transaction %s: %s", t.tx.ID(), err)

				if cerr := cc.ConfirmCommit(ctx, false); cerr != nil {
					logging.Log(t.logger, "unable to confirm abort of transaction %s: %s", t.tx.ID(), cerr)
				}
			}
		}

		mlog.LogResolution(t.logger, t.tx.ID(), s == Commit, err)

		t.state = s

		if t.gate != nil {
			t.gate.Release()
		}

		if t.ordered != nil {
			t.ordered.Set()
		}

		t.resolved.Set()
	})
}

// finish commits or rolls back the transaction.
func (t *tree) finish(ctx context.Context, commit bool) error {
	if !commit {
		return t.tx.Rollback(ctx)
	}

	if err := t.tx.Prepare(ctx); err != nil {
		return err
	}

	return t.tx.Commit(ctx)
}
