package cascade

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/batch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/gate"
	"github.com/kakkerlakgly/adapterkit/internal/mlog"
	"github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Event is a one-shot signal that is set once a cascade has settled.
type Event = syncx.Event

// Node is a batch of receive-side operations that retries failures in
// nested batches.
//
// When a batch fails, a child node is built that moves the failed messages
// to the suspended queue and resubmits the messages that succeeded, because
// nothing in a failed batch can be trusted to have been applied. Recursion
// stops once the remaining depth reaches zero. The outcome is reported once,
// after the deepest node has completed.
type Node struct {
	req     *batch.Request
	proxy   engine.Proxy
	gate    *gate.Gate
	depth   int
	root    bool
	ordered *Event
	handler func(Outcome)
	logger  logging.Logger

	out     chan Outcome // receives the outcome of this node's subtree
	settled syncx.Event
	outcome Outcome
}

// Option configures a cascade.
type Option func(*Node)

// WithOrderedEvent returns an option that sets an event that is signaled
// once the cascade has settled.
func WithOrderedEvent(e *Event) Option {
	return func(n *Node) {
		n.ordered = e
	}
}

// WithHandler returns an option that sets a function that is called with the
// outcome of the cascade.
func WithHandler(fn func(Outcome)) Option {
	return func(n *Node) {
		n.handler = fn
	}
}

// WithLogger returns an option that sets the logger used by the cascade.
func WithLogger(l logging.Logger) Option {
	return func(n *Node) {
		n.logger = l
	}
}

// New returns the root node of a new cascade.
//
// depth is the maximum number of nested batches. Submitting the root admits
// one activity permit from g, which is released once the cascade has
// settled. g may be nil.
func New(p engine.Proxy, g *gate.Gate, depth int, options ...Option) (*Node, error) {
	if depth < 0 {
		panic("cascade depth must not be negative")
	}

	n := &Node{
		proxy: p,
		gate:  g,
		depth: depth,
		root:  true,
	}

	for _, opt := range options {
		opt(n)
	}

	if n.logger == nil {
		n.logger = logging.DefaultLogger
	}

	return n, n.init()
}

// child returns a new node one level below n.
func (n *Node) child() (*Node, error) {
	c := &Node{
		proxy:  n.proxy,
		gate:   n.gate,
		depth:  n.depth - 1,
		logger: n.logger,
	}

	return c, c.init()
}

func (n *Node) init() error {
	n.out = make(chan Outcome, 1)

	req, err := batch.New(
		n.proxy,
		batch.WithSuccessCalls(true),
		batch.WithLogger(n.logger),
		batch.WithHandler(n.complete),
	)
	if err != nil {
		return err
	}

	n.req = req

	return nil
}

// AddSubmit adds an operation that submits m to the engine.
func (n *Node) AddSubmit(m *message.Message, userData any) error {
	return n.req.AddSubmit(m, userData)
}

// AddSubmitRequest adds an operation that submits a request message.
func (n *Node) AddSubmitRequest(
	m *message.Message,
	token string,
	firstResponseOnly bool,
	expiry time.Time,
	responder engine.Responder,
	userData any,
) error {
	return n.req.AddSubmitRequest(m, token, firstResponseOnly, expiry, responder, userData)
}

// AddMoveToSuspend adds an operation that moves m to the suspended queue.
func (n *Node) AddMoveToSuspend(m *message.Message, userData any) error {
	return n.req.AddMoveToSuspend(m, userData)
}

// AddDelete adds an operation that removes m from the engine's queue.
func (n *Node) AddDelete(m *message.Message, userData any) error {
	return n.req.AddDelete(m, userData)
}

// IsEmpty returns true if no operations have been added to the node.
func (n *Node) IsEmpty() bool {
	return n.req.IsEmpty()
}

// Len returns the number of operations in the node.
func (n *Node) Len() int {
	return n.req.Len()
}

// Close discards the node without submitting it.
func (n *Node) Close() error {
	return n.req.Close()
}

// Done submits the root of the cascade to the engine.
//
// It returns gate.ErrDraining if the gate refuses entry.
func (n *Node) Done(ctx context.Context) error {
	if !n.root {
		panic("Done() must only be called on the root of a cascade")
	}

	if n.gate != nil && !n.gate.Admit() {
		n.req.Close()
		return gate.ErrDraining
	}

	if _, err := n.req.Done(ctx, nil); err != nil {
		if n.gate != nil {
			n.gate.Release()
		}
		return err
	}

	return nil
}

// Completed returns a channel that is closed once the cascade has settled.
func (n *Node) Completed() <-chan struct{} {
	return n.settled.Done()
}

// Outcome returns the outcome of the cascade. It must not be called before
// the channel returned by Completed() is closed.
func (n *Node) Outcome() Outcome {
	return n.outcome
}

// Wait blocks until the cascade has settled, then returns its outcome.
func (n *Node) Wait(ctx context.Context) (Outcome, error) {
	if err := n.settled.Wait(ctx); err != nil {
		return Outcome{}, err
	}

	return n.outcome, nil
}

// complete is the handler for the node's batch result.
func (n *Node) complete(_ *batch.Request, r batch.Result) {
	var (
		child         *Node
		failed        []FailedMessage
		suspendFailed bool
	)

	if r.Status.Failed() && n.depth > 0 {
		c, err := n.child()
		if err != nil {
			logging.Log(n.logger, "unable to start retry batch: %s", err)
		} else {
			child = c
		}
	}

	// requeue re-adds the message of e to the child node, if there is one.
	requeue := func(e batch.Entry, add func(*Node) error) bool {
		if child == nil {
			return false
		}

		err := e.Message.Rewind()
		if err == nil {
			err = add(child)
		}

		if err != nil {
			logging.Log(n.logger, "unable to retry %s operation: %s", e.Kind, err)
			child.Close()
			child = nil
			return false
		}

		return true
	}

	suspend := func(e batch.Entry) func(*Node) error {
		return func(c *Node) error {
			return c.AddMoveToSuspend(e.Message, e.UserData)
		}
	}

	fail := func(e batch.Entry) {
		failed = append(failed, FailedMessage{e.Message, e.Status})
		requeue(e, suspend(e))
	}

	release := func(e batch.Entry, add func(*Node) error) {
		if !requeue(e, add) {
			e.Message.Close()
		}
	}

	r.Dispatch(
		batch.Hooks{
			OnFailure: map[engine.Kind]func(batch.Entry){
				engine.Submit:        fail,
				engine.SubmitRequest: fail,
				engine.MoveToSuspend: func(e batch.Entry) {
					suspendFailed = true
					mlog.LogSuspendFailure(n.logger, e.Message, e.Status)
					e.Message.Close()
				},
			},
			OnSuccess: map[engine.Kind]func(batch.Entry){
				engine.Submit: func(e batch.Entry) {
					release(e, func(c *Node) error {
						return c.AddSubmit(e.Message, e.UserData)
					})
				},
				engine.SubmitRequest: func(e batch.Entry) {
					release(e, func(c *Node) error {
						return c.AddSubmitRequest(
							e.Message,
							e.Token,
							e.FirstResponseOnly,
							e.Expiry,
							e.Responder,
							e.UserData,
						)
					})
				},
				engine.MoveToSuspend: func(e batch.Entry) {
					release(e, suspend(e))
				},
			},
		},
		true,
	)

	own := Outcome{
		Success:       r.Status.Succeeded() && !suspendFailed,
		SuspendFailed: suspendFailed,
		Failed:        failed,
	}

	if child != nil && !child.IsEmpty() {
		if _, err := child.req.Done(context.Background(), nil); err != nil {
			logging.Log(n.logger, "unable to submit retry batch: %s", err)
		} else {
			go func() {
				o := <-child.out
				n.settle(o.merge(failed, suspendFailed))
			}()
			return
		}
	} else if child != nil {
		child.Close()
	}

	n.settle(own)
}

// settle reports the outcome of n's subtree.
func (n *Node) settle(o Outcome) {
	n.out <- o

	if !n.root {
		return
	}

	n.outcome = o

	if n.gate != nil {
		n.gate.Release()
	}

	if n.ordered != nil {
		n.ordered.Set()
	}

	if n.handler != nil {
		n.handler(o)
	}

	n.settled.Set()
}

// Submit submits msgs through a new cascade and waits for it to settle.
func Submit(
	ctx context.Context,
	p engine.Proxy,
	g *gate.Gate,
	depth int,
	msgs []*message.Message,
	options ...Option,
) (Outcome, error) {
	n, err := New(p, g, depth, options...)
	if err != nil {
		return Outcome{}, err
	}

	for _, m := range msgs {
		if err := n.AddSubmit(m, nil); err != nil {
			n.Close()
			return Outcome{}, err
		}
	}

	if err := n.Done(ctx); err != nil {
		return Outcome{}, err
	}

	return n.Wait(ctx)
}
