package engine

import "fmt"

// Kind is an enumeration of the operations that can be staged in an engine
// batch.
type Kind int

const (
	// Submit is an operation that submits a new inbound message to the
	// engine.
	Submit Kind = iota

	// Delete is an operation that removes a message that has been fully
	// processed from the engine's queue.
	Delete

	// Resubmit is an operation that schedules a message for redelivery at a
	// specific time.
	Resubmit

	// MoveToSuspend is an operation that moves a message to the suspended
	// (dead-letter) queue.
	MoveToSuspend

	// MoveToNextTransport is an operation that hands a message to the next
	// configured transport for its destination.
	MoveToNextTransport

	// SubmitRequest is an operation that submits a request message that
	// expects one or more responses.
	SubmitRequest

	// SubmitResponse is an operation that submits a response to a previously
	// delivered request message.
	SubmitResponse

	// CancelRequest is an operation that stops waiting for the responses to a
	// request message.
	CancelRequest
)

// Kinds is the set of all operation kinds, in declaration order.
var Kinds = []Kind{
	Submit,
	Delete,
	Resubmit,
	MoveToSuspend,
	MoveToNextTransport,
	SubmitRequest,
	SubmitResponse,
	CancelRequest,
}

// MustValidate panics if k is not a valid operation kind.
func (k Kind) MustValidate() {
	if k < Submit || k > CancelRequest {
		panic(fmt.Sprintf("invalid operation kind: %d", k))
	}
}

func (k Kind) String() string {
	switch k {
	case Submit:
		return "submit"
	case Delete:
		return "delete"
	case Resubmit:
		return "resubmit"
	case MoveToSuspend:
		return "move-to-suspend"
	case MoveToNextTransport:
		return "move-to-next-transport"
	case SubmitRequest:
		return "submit-request"
	case SubmitResponse:
		return "submit-response"
	case CancelRequest:
		return "cancel-request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
