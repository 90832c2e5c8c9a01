package memoryengine

import (
	"time"

	"github.com/kakkerlakgly/adapterkit/engine"
	"github.com/kakkerlakgly/adapterkit/message"
)

// Operation is an operation staged in a batch.
type Operation struct {
	Kind engine.Kind

	// Message is the message the operation applies to. For submit-response
	// operations it is the response.
	Message *message.Message

	// Request is the request that a submit-response operation responds to.
	Request *message.Message

	// Token is the correlation token of request operations.
	Token string

	// At is the redelivery time of a resubmit operation.
	At time.Time

	firstResponseOnly bool
	expiry            time.Time
	responder         engine.Responder
}

// Record is the history entry of a batch that has been executed.
type Record struct {
	Operations    []Operation
	Outcome       engine.Outcome
	Transactional bool
}

// Count returns the number of operations of kind k in the batch.
func (r Record) Count(k engine.Kind) int {
	n := 0
	for _, op := range r.Operations {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Response is a response message submitted to the engine.
type Response struct {
	Request  *message.Message
	Response *message.Message
}

type pendingRequest struct {
	message           *message.Message
	firstResponseOnly bool
	expiry            time.Time
	responder         engine.Responder
}

type redelivery struct {
	message *message.Message
	at      time.Time
}
