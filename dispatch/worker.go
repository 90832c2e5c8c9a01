package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/internal/mlog"
	"github.com/kakkerlakgly/adapterkit/internal/x/loggingx"
	"github.com/kakkerlakgly/adapterkit/internal/x/syncx"
	"github.com/kakkerlakgly/adapterkit/message"
)

// worker delivers the messages of a dispatched batch.
//
// Each message carries one activity permit. The permit of every message
// except the last is released as soon as the message has been retired. The
// last permit is held by the response batch and released once the engine
// has reported the outcome of the response batch and all of its follow-ups.
type worker struct {
	transmitter *Transmitter
	messages    []*message.Message
	settled     *syncx.Event
}

func (w *worker) run(ctx context.Context) {
	t := w.transmitter

	if t.Semaphore.TryAcquire() {
		defer t.Semaphore.Release()
	} else {
		logging.Debug(
			t.logger(),
			"waiting for one of %d workers to finish",
			t.Semaphore.Limit(),
		)

		if err := t.Semaphore.Acquire(ctx); err == nil {
			defer t.Semaphore.Release()
		}
	}

	rb, err := newResponseBatch(t, t.responseDepth(), w.settle)
	if err != nil {
		logging.Log(t.logger(), "unable to start response batch: %s", err)

		for range w.messages[1:] {
			w.release()
		}
		w.settle()

		return
	}

	last := len(w.messages) - 1
	for i, m := range w.messages {
		w.process(ctx, rb, m, i != last)
	}

	rb.done(ctx)
}

// process delivers m and stages its outcome in rb.
//
// If release is true the message's activity permit is released once the
// outcome has been staged, even if delivery panics.
func (w *worker) process(
	ctx context.Context,
	rb *responseBatch,
	m *message.Message,
	release bool,
) {
	if release {
		defer w.release()
	}

	resp, err := w.deliver(ctx, m)
	if err != nil {
		w.fail(rb, ProcessingError{m, err})
		return
	}

	rb.succeed(m, resp)
}

// deliver passes m to its endpoint. A panic within the endpoint is returned
// as an error.
func (w *worker) deliver(
	ctx context.Context,
	m *message.Message,
) (resp *message.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("endpoint panicked: %v", r)
		}
	}()

	ep, release, err := w.transmitter.Endpoint(ctx, m)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err = ep.ProcessMessage(ctx, m)
	if err != nil {
		return nil, err
	}

	if resp != nil {
		if err := resp.CheckSeekable(); err != nil {
			return nil, fmt.Errorf("invalid response: %w", err)
		}
	}

	return resp, nil
}

// fail stages the retry of a message that could not be delivered.
//
// The message is resubmitted if it has retries remaining, otherwise it is
// moved to the next transport.
func (w *worker) fail(rb *responseBatch, err ProcessingError) {
	t := w.transmitter
	m := err.Message

	m.ErrorInfo = err

	attempt := m.FailureCount()
	m.SetFailureCount(attempt + 1)

	logger := loggingx.WithSession(
		t.logger(),
		t.parameters(m).SessionKey,
	)

	if m.RetryCount() > 0 {
		at := w.retryAt(m, attempt, err.Cause)
		mlog.LogProcessingError(
			logger,
			m,
			err.Cause,
			fmt.Sprintf("retrying at %s", at.Format(time.RFC3339)),
		)
		rb.add(m, rb.req.AddResubmit(m, at, nil))
		return
	}

	mlog.LogProcessingError(
		logger,
		m,
		err.Cause,
		"no retries remaining, moving to next transport",
	)
	rb.add(m, rb.req.AddMoveToNextTransport(m, nil))
}

// retryAt returns the time at which m should be redelivered.
func (w *worker) retryAt(m *message.Message, attempt int, cause error) time.Time {
	now := time.Now()

	if d := m.RetryInterval(); d > 0 {
		return now.Add(d)
	}

	return w.transmitter.retryPolicy().NextRetry(now, attempt, []error{cause})
}

func (w *worker) release() {
	if g := w.transmitter.Gate; g != nil {
		g.Release()
	}
}

// settle releases the last activity permit of the batch.
func (w *worker) settle() {
	w.release()
	w.settled.Set()
}
