package txn

import (
	"context"
	"fmt"

	"github.com/kakkerlakgly/adapterkit/batch"
)

// State is the decision about the outcome of a transaction.
type State int

const (
	// Undecided means no decision has been made. A transaction that is
	// resolved while undecided is aborted.
	Undecided State = iota

	// Commit means the transaction is to be committed.
	Commit

	// Abort means the transaction is to be rolled back.
	Abort
)

func (s State) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case Commit:
		return "commit"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision is a policy's verdict on the result of a batch.
type Decision struct {
	// State is the decided outcome of the transaction.
	State State

	// Pending indicates that the policy has submitted a follow-up batch that
	// shares the transaction. The transaction is resolved when the follow-up
	// completes, State is ignored.
	Pending bool
}

// Policy decides the outcome of a transaction based on the result of a
// batch.
type Policy interface {
	// Decide is called with the result of b. ctx is the context of the
	// original submission, without its cancelation.
	Decide(ctx context.Context, b *Batch, r batch.Result) Decision
}

// PolicyFunc is an adaptor to allow the use of an ordinary function as a
// Policy.
type PolicyFunc func(context.Context, *Batch, batch.Result) Decision

// Decide returns fn(ctx, b, r).
func (fn PolicyFunc) Decide(ctx context.Context, b *Batch, r batch.Result) Decision {
	return fn(ctx, b, r)
}
