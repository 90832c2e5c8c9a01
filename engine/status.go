package engine

import "fmt"

// Status is a signed result code reported by the engine.
//
// Non-negative values indicate success, negative values indicate failure.
type Status int32

const (
	// StatusOK indicates that an operation or batch succeeded.
	StatusOK Status = 0

	// StatusFailed indicates that an individual operation could not be
	// applied.
	StatusFailed Status = -1

	// StatusAborted indicates that the batch as a whole failed. None of its
	// operations can be trusted to have been applied.
	StatusAborted Status = -2

	// StatusRejected indicates that the engine accepted the batch but a
	// downstream handler rejected an individual message.
	StatusRejected Status = -3
)

// Failed returns true if s indicates a failure.
func (s Status) Failed() bool {
	return s < 0
}

// Succeeded returns true if s indicates success.
func (s Status) Succeeded() bool {
	return s >= 0
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// OperationStatus is the set of statuses of all operations of a single kind
// within a batch.
type OperationStatus struct {
	Kind Kind

	// Statuses contains one status per operation of this kind, in the order
	// the operations were staged.
	Statuses []Status
}

// Outcome is the result of a batch, as reported to its callback.
type Outcome struct {
	// Status is the overall batch status.
	Status Status

	// Operations holds the per-message statuses, grouped by kind.
	Operations []OperationStatus
}

// StatusesOf returns the per-message statuses of operations of kind k.
func (o Outcome) StatusesOf(k Kind) []Status {
	for _, op := range o.Operations {
		if op.Kind == k {
			return op.Statuses
		}
	}

	return nil
}

// Callback is a function invoked by the engine when a batch has been
// processed.
//
// It is invoked exactly once per batch on which Done() succeeded, on a
// goroutine that is not controlled by the caller.
type Callback func(Outcome)
