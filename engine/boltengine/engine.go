package boltengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/x/bboltx"
	"github.com/kakkerlakgly/adapterkit/message"
	"go.etcd.io/bbolt"
)

// Names of the buckets that messages are stored in.
const (
	InboundBucket       = "inbound"
	SubmittedBucket     = "submitted"
	SuspendedBucket     = "suspended"
	NextTransportBucket = "next-transport"
	ResubmitBucket      = "resubmit"
	RequestsBucket      = "requests"
	ResponsesBucket     = "responses"
)

// BucketNames is the names of all buckets, in display order.
var BucketNames = []string{
	InboundBucket,
	SubmittedBucket,
	SuspendedBucket,
	NextTransportBucket,
	ResubmitBucket,
	RequestsBucket,
	ResponsesBucket,
}

// ErrUnknownBucket is returned when an operator query names a bucket that
// does not exist.
var ErrUnknownBucket = errors.New("unknown bucket")

// errRollback is used to roll back a write transaction that has been
// applied for validation only.
var errRollback = errors.New("rollback")

// Engine is a messaging engine that persists messages in a BoltDB
// database.
//
// All operations of a batch are applied in a single write transaction. If
// any operation fails, none are applied.
type Engine struct {
	db     *bbolt.DB
	logger logging.Logger
	wg     sync.WaitGroup

	m    sync.Mutex
	wake chan struct{}
}

// Option configures an engine.
type Option func(*Engine)

// WithLogger returns an option that sets the logger used by the engine.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Open opens the engine database at the given path, creating it if
// necessary.
//
// The deadline of ctx limits how long Open() waits for another process to
// release the database.
func Open(ctx context.Context, path string, options ...Option) (*Engine, error) {
	db, err := bboltx.Open(ctx, path, 0, nil)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		db:     db,
		logger: logging.DefaultLogger,
	}

	for _, opt := range options {
		opt(e)
	}

	if err := bboltx.Update(db, func(tx *bbolt.Tx) {
		for _, n := range BucketNames {
			bboltx.CreateBucketIfNotExists(tx, []byte(n))
		}
	}); err != nil {
		db.Close()
		return nil, err
	}

	return e, nil
}

// NewBatch starts a new batch of operations.
func (e *Engine) NewBatch(cb engine.Callback) (engine.Batch, error) {
	return &batch{
		engine:   e,
		callback: cb,
	}, nil
}

// Enqueue adds m to the inbound queue.
func (e *Engine) Enqueue(ctx context.Context, m *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := newRecord(m)
	if err != nil {
		return err
	}

	data, err := marshalRecord(r)
	if err != nil {
		return err
	}

	return bboltx.Update(e.db, func(tx *bbolt.Tx) {
		bboltx.Put(
			bboltx.Bucket(tx, []byte(InboundBucket)),
			[]byte(m.ID),
			data,
		)
	})
}

// Redeliver blocks until a resubmitted message is due for redelivery, then
// moves it from the resubmit bucket back to the inbound queue and returns it.
func (e *Engine) Redeliver(ctx context.Context) (*message.Message, error) {
	for {
		wake := e.wakeChannel()

		var (
			m   *message.Message
			due time.Time
			ok  bool
		)

		if err := bboltx.Update(e.db, func(tx *bbolt.Tx) {
			b := bboltx.Bucket(tx, []byte(ResubmitBucket))

			k, v := b.Cursor().First()
			if k == nil {
				return
			}

			ok = true
			due = unmarshalDue(k)

			if !due.After(time.Now()) {
				r := unmarshalRecord(v)
				r.Due = 0

				data, err := marshalRecord(r)
				bboltx.Must(err)

				bboltx.Must(b.Delete(k))
				bboltx.Put(
					bboltx.Bucket(tx, []byte(InboundBucket)),
					[]byte(r.ID),
					data,
				)
				m = r.Message()
			}
		}); err != nil {
			return nil, err
		}

		if m != nil {
			return m, nil
		}

		if !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wake:
				continue
			}
		}

		if err := sleepUntil(ctx, due, wake); err != nil {
			return nil, err
		}
	}
}

// Requeue moves m, previously returned by Redeliver(), from the inbound queue
// back to the resubmit bucket so that it is redelivered again at the given
// time. The message's retry count is left unchanged.
func (e *Engine) Requeue(m *message.Message, at time.Time) error {
	r, err := newRecord(m)
	if err != nil {
		return err
	}
	r.Due = at.UnixNano()

	data, err := marshalRecord(r)
	if err != nil {
		return err
	}

	if err := bboltx.Update(e.db, func(tx *bbolt.Tx) {
		bboltx.Delete(
			bboltx.Bucket(tx, []byte(InboundBucket)),
			[]byte(m.ID),
		)
		bboltx.Put(
			bboltx.Bucket(tx, []byte(ResubmitBucket)),
			dueKey(at, m.ID),
			data,
		)
	}); err != nil {
		return err
	}

	e.notify()

	return nil
}

// Wait blocks until all batches that have been submitted have executed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close waits for submitted batches to execute, then closes the database.
func (e *Engine) Close() error {
	e.wg.Wait()
	return e.db.Close()
}

// execute runs a batch on a new goroutine.
func (e *Engine) execute(
	ops []operation,
	cb engine.Callback,
	tx engine.Transaction,
	c *confirmer,
) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		o, err := e.apply(ops, tx != nil)
		if err != nil {
			logging.Log(e.logger, "unable to execute batch: %s", err)
		}

		if o.Status.Succeeded() && tx != nil {
			c.staged = ops
		}
		close(c.executed)

		logging.Debug(
			e.logger,
			"executed batch of %d operation(s), status: %s",
			len(ops),
			o.Status,
		)

		cb(o)
	}()
}

// apply applies ops in a single write transaction.
//
// If validateOnly is true, or any operation fails, the transaction is rolled
// back.
func (e *Engine) apply(ops []operation, validateOnly bool) (engine.Outcome, error) {
	statuses := make([]engine.Status, len(ops))
	failed := false
	resubmitted := false

	err := bboltx.Update(e.db, func(tx *bbolt.Tx) {
		for i, op := range ops {
			statuses[i] = op.apply(tx)

			if statuses[i].Failed() {
				failed = true
			} else if op.kind == engine.Resubmit {
				resubmitted = true
			}
		}

		if failed || validateOnly {
			bboltx.Must(errRollback)
		}
	})

	rolledBack := err == errRollback
	if rolledBack {
		err = nil
	}

	status := engine.StatusOK
	switch {
	case failed:
		status = engine.StatusAborted
	case err != nil:
		status = engine.StatusFailed
	case resubmitted && !rolledBack:
		e.notify()
	}

	return outcome(ops, statuses, status), err
}

// confirm applies the operations of a transactional batch once its commit
// has been confirmed.
func (e *Engine) confirm(ops []operation) error {
	o, err := e.apply(ops, false)
	if err != nil {
		return err
	}

	if o.Status.Failed() {
		return errors.New("staged operations are no longer valid")
	}

	return nil
}

// notify wakes any goroutine blocked in Redeliver().
func (e *Engine) notify() {
	e.m.Lock()
	defer e.m.Unlock()

	if e.wake != nil {
		close(e.wake)
		e.wake = nil
	}
}

// wakeChannel returns a channel that is closed when a message is
// resubmitted.
func (e *Engine) wakeChannel() chan struct{} {
	e.m.Lock()
	defer e.m.Unlock()

	if e.wake == nil {
		e.wake = make(chan struct{})
	}
	return e.wake
}

// outcome builds the outcome of a batch from its per-operation statuses.
func outcome(
	ops []operation,
	statuses []engine.Status,
	status engine.Status,
) engine.Outcome {
	o := engine.Outcome{Status: status}
	index := map[engine.Kind]int{}

	for i, op := range ops {
		j, ok := index[op.kind]
		if !ok {
			j = len(o.Operations)
			index[op.kind] = j
			o.Operations = append(o.Operations, engine.OperationStatus{Kind: op.kind})
		}

		o.Operations[j].Statuses = append(o.Operations[j].Statuses, statuses[i])
	}

	return o
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
