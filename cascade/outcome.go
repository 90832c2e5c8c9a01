package cascade

import (
	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// FailedMessage is a message that the engine reported as failed, along with
// the last status it reported.
type FailedMessage struct {
	Message *message.Message
	Status  engine.Status
}

// Outcome is the result of a whole cascade.
type Outcome struct {
	// Success is true if the deepest batch of the cascade succeeded and no
	// message was lost because it could not be suspended.
	Success bool

	// SuspendFailed is true if any message could not be moved to the
	// suspended queue. Such messages are lost.
	SuspendFailed bool

	// Failed contains the messages that failed, across every level of the
	// cascade.
	Failed []FailedMessage

	// Depth is the number of nested batches that were submitted after the
	// original batch.
	Depth int
}

// merge combines the outcome of a child node with the state of its parent.
func (o Outcome) merge(failed []FailedMessage, suspendFailed bool) Outcome {
	o.Failed = append(append([]FailedMessage(nil), failed...), o.Failed...)
	o.SuspendFailed = o.SuspendFailed || suspendFailed
	o.Success = o.Success && !suspendFailed
	o.Depth++
	return o
}
