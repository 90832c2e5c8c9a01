package txn

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/kakkerlakgly/adapterkit/batch"
	"github.com/kakkerlakgly/adapterkit/engine"
)

// ErrNotSingleMessage is the reason given when a batch that uses
// SingleMessageRetryToSuspend() does not contain exactly one operation.
var ErrNotSingleMessage = errors.New("batch must contain exactly one submitted message")

// AbortOnAnyFailure returns a policy that aborts the transaction if the batch
// or any of its messages failed.
//
// onAbort, if non-nil, is called when the policy decides to abort.
func AbortOnAnyFailure(onAbort func()) Policy {
	return PolicyFunc(func(_ context.Context, _ *Batch, r batch.Result) Decision {
		if r.AnyFailed() {
			if onAbort != nil {
				onAbort()
			}
			return Decision{State: Abort}
		}

		return Decision{State: Commit}
	})
}

// AbortOnHardFailureOnly returns a policy that aborts the transaction only if
// the engine failed the batch as a whole.
//
// Messages that were rejected individually while the batch succeeded do not
// prevent the commit. onStop, if non-nil, is called when the policy decides to
// abort.
func AbortOnHardFailureOnly(onStop func()) Policy {
	return PolicyFunc(func(_ context.Context, _ *Batch, r batch.Result) Decision {
		if r.Status.Failed() {
			if onStop != nil {
				onStop()
			}
			return Decision{State: Abort}
		}

		return Decision{State: Commit}
	})
}

// SingleMessageRetryToSuspend returns a policy for batches that submit
// exactly one message.
//
// If the submission succeeds the transaction is committed. If the batch
// fails, the message is moved to the suspended queue by a follow-up batch
// within the same transaction, which commits only if the move succeeds.
func SingleMessageRetryToSuspend() Policy {
	return singleMessage{}
}

type singleMessage struct{}

func (singleMessage) validate(b *Batch) error {
	if b.Len() != 1 {
		return batch.ContractViolation{
			Operation: "done",
			Reason:    ErrNotSingleMessage,
		}
	}

	return nil
}

func (singleMessage) Decide(ctx context.Context, b *Batch, r batch.Result) Decision {
	state := Abort

	var child *Batch
	if r.Status.Failed() {
		c, err := b.FollowUp(AbortOnAnyFailure(nil))
		if err != nil {
			logging.Log(b.logger, "unable to start suspend batch: %s", err)
			return Decision{State: Abort}
		}
		child = c
	}

	r.Dispatch(
		batch.Hooks{
			OnFailure: map[engine.Kind]func(batch.Entry){
				engine.Submit: func(e batch.Entry) {
					if child == nil {
						return
					}

					err := e.Message.Rewind()
					if err == nil {
						err = child.AddMoveToSuspend(e.Message, e.UserData)
					}

					if err != nil {
						logging.Log(b.logger, "unable to suspend message: %s", err)
						child.Close()
						child = nil
						state = Abort
					}
				},
			},
			OnSuccess: map[engine.Kind]func(batch.Entry){
				engine.Submit: func(batch.Entry) {
					state = Commit
				},
			},
		},
		true,
	)

	if child == nil {
		return Decision{State: state}
	}

	if child.IsEmpty() {
		child.Close()
		return Decision{State: state}
	}

	if err := child.Done(ctx); err != nil {
		logging.Log(b.logger, "unable to submit suspend batch: %s", err)
		return Decision{State: Abort}
	}

	return Decision{Pending: true}
}
