package dispatch

import (
	"context"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/batch"
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/internal/mlog"
	"github.com/kakkerlakgly/adapterkit/message"
)

// responseBatch reports the outcome of delivering outbound messages to the
// engine.
//
// If the engine fails the batch, the operations are retried in a follow-up
// batch, and failed operations are escalated: a failed response or
// next-transport move becomes a move to the suspended queue, a failed
// resubmit becomes a move to the next transport. Follow-ups are nested at
// most depth times.
type responseBatch struct {
	transmitter *Transmitter
	req         *batch.Request
	depth       int
	settle      func()
	logger      logging.Logger
}

func newResponseBatch(t *Transmitter, depth int, settle func()) (*responseBatch, error) {
	rb := &responseBatch{
		transmitter: t,
		depth:       depth,
		settle:      settle,
		logger:      t.logger(),
	}

	req, err := batch.New(
		t.Engine,
		batch.WithSuccessCalls(true),
		batch.WithLogger(rb.logger),
		batch.WithHandler(rb.complete),
	)
	if err != nil {
		return nil, err
	}

	rb.req = req

	return rb, nil
}

// succeed stages the removal of a delivered message, along with its
// response, if any.
func (rb *responseBatch) succeed(m, resp *message.Message) {
	rb.add(m, rb.req.AddDelete(m, nil))

	if resp != nil {
		rb.add(resp, rb.req.AddSubmitResponse(m, resp, nil))
	}
}

// add logs err if staging an operation for m failed.
func (rb *responseBatch) add(m *message.Message, err error) {
	if err != nil {
		logging.Log(
			rb.logger,
			"unable to stage operation for message %s: %s",
			m.ID,
			err,
		)
	}
}

// done submits the batch to the engine. settle is called immediately if
// there is nothing to submit or the engine refuses the batch.
func (rb *responseBatch) done(ctx context.Context) {
	if rb.req.IsEmpty() {
		rb.req.Close()
		rb.settle()
		return
	}

	if _, err := rb.req.Done(ctx, nil); err != nil {
		logging.Log(rb.logger, "unable to submit response batch: %s", err)
		rb.settle()
	}
}

// complete is the handler for the batch result.
func (rb *responseBatch) complete(_ *batch.Request, r batch.Result) {
	var child *responseBatch
	batchFailed := r.Status.Failed()

	// next returns the follow-up batch, starting it if necessary. It returns
	// nil once the depth is exhausted.
	next := func() *responseBatch {
		if child == nil && rb.depth > 0 {
			c, err := newResponseBatch(rb.transmitter, rb.depth-1, nil)
			if err != nil {
				logging.Log(rb.logger, "unable to start follow-up batch: %s", err)
				return nil
			}
			child = c
		}
		return child
	}

	if batchFailed {
		next()
	}

	// retry re-stages a successful operation when the batch as a whole
	// failed, because nothing in a failed batch has been applied.
	retry := func(stage func(*responseBatch, batch.Entry) error) func(batch.Entry) {
		return func(e batch.Entry) {
			if !batchFailed {
				return
			}

			c := next()
			if c == nil {
				mlog.LogFailure(rb.logger, e.Kind, e.Message, r.Status, "no retries remaining")
				return
			}

			c.add(e.Message, stage(c, e))
		}
	}

	// escalate stages a fallback for a failed operation.
	escalate := func(stage func(*responseBatch, batch.Entry) error) func(batch.Entry) {
		return func(e batch.Entry) {
			c := next()
			if c == nil {
				mlog.LogFailure(rb.logger, e.Kind, e.Message, e.Status, "no retries remaining")
				return
			}

			mlog.LogFailure(rb.logger, e.Kind, e.Message, e.Status)
			c.add(e.Message, stage(c, e))
		}
	}

	suspend := func(c *responseBatch, e batch.Entry) error {
		return c.req.AddMoveToSuspend(e.Message, nil)
	}

	nextTransport := func(c *responseBatch, e batch.Entry) error {
		return c.req.AddMoveToNextTransport(e.Message, nil)
	}

	r.Dispatch(
		batch.Hooks{
			OnSuccess: map[engine.Kind]func(batch.Entry){
				engine.Delete: retry(func(c *responseBatch, e batch.Entry) error {
					return c.req.AddDelete(e.Message, nil)
				}),
				engine.SubmitResponse: retry(func(c *responseBatch, e batch.Entry) error {
					if err := e.Message.Rewind(); err != nil {
						return err
					}
					return c.req.AddSubmitResponse(e.Request, e.Message, nil)
				}),
				engine.Resubmit: retry(func(c *responseBatch, e batch.Entry) error {
					return c.req.AddResubmit(e.Message, e.At, nil)
				}),
				engine.MoveToNextTransport: retry(nextTransport),
				engine.MoveToSuspend:       retry(suspend),
			},
			OnFailure: map[engine.Kind]func(batch.Entry){
				engine.SubmitResponse:      escalate(suspend),
				engine.Resubmit:            escalate(nextTransport),
				engine.MoveToNextTransport: escalate(suspend),
				engine.MoveToSuspend: func(e batch.Entry) {
					mlog.LogSuspendFailure(rb.logger, e.Message, e.Status)
				},
			},
			Failure: func(e batch.Entry) {
				mlog.LogFailure(rb.logger, e.Kind, e.Message, e.Status)
			},
		},
		true,
	)

	if child == nil {
		rb.settle()
		return
	}

	child.settle = rb.settle
	child.done(context.Background())
}
