package batch

import (
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Entry is a single operation within a batch, along with its outcome.
type Entry struct {
	// Kind is the kind of operation.
	Kind engine.Kind

	// Message is the message the operation applies to. For submit-response
	// operations it is the response. It is nil for cancel-request
	// operations.
	Message *message.Message

	// Request is the request message that a submit-response operation
	// responds to.
	Request *message.Message

	// Token is the correlation token of submit-request and cancel-request
	// operations.
	Token string

	// At is the requested redelivery time of a resubmit operation.
	At time.Time

	// FirstResponseOnly, Expiry and Responder are the parameters of a
	// submit-request operation.
	FirstResponseOnly bool
	Expiry            time.Time
	Responder         engine.Responder

	// UserData is the caller-supplied value passed when the operation was
	// added.
	UserData any

	// Status is the per-message status reported by the engine.
	Status engine.Status
}

// OperationResult is the set of entries of a single operation kind.
type OperationResult struct {
	Kind    engine.Kind
	Entries []Entry
}

// Result is the outcome of a batch.
type Result struct {
	// Status is the overall batch status.
	Status engine.Status

	// Operations contains the entries of the batch grouped by kind, in the
	// order each kind was first added.
	Operations []OperationResult
}

// Entries returns all of the entries in the result.
func (r Result) Entries() []Entry {
	var entries []Entry
	for _, op := range r.Operations {
		entries = append(entries, op.Entries...)
	}
	return entries
}

// Failed returns the entries that have a negative status.
func (r Result) Failed() []Entry {
	return r.filter(engine.Status.Failed)
}

// Succeeded returns the entries that have a non-negative status.
func (r Result) Succeeded() []Entry {
	return r.filter(engine.Status.Succeeded)
}

// AnyFailed returns true if the batch or any of its entries failed.
func (r Result) AnyFailed() bool {
	if r.Status.Failed() {
		return true
	}

	for _, op := range r.Operations {
		for _, e := range op.Entries {
			if e.Status.Failed() {
				return true
			}
		}
	}

	return false
}

// Count returns the number of entries of kind k.
func (r Result) Count(k engine.Kind) int {
	for _, op := range r.Operations {
		if op.Kind == k {
			return len(op.Entries)
		}
	}

	return 0
}

func (r Result) filter(pred func(engine.Status) bool) []Entry {
	var entries []Entry
	for _, op := range r.Operations {
		for _, e := range op.Entries {
			if pred(e.Status) {
				entries = append(entries, e)
			}
		}
	}
	return entries
}
