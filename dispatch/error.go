package dispatch

import (
	"errors"
	"fmt"

	"github.com/kakkerlakgly/adapterkit/message"
)

var (
	// ErrEmptyBatch is returned by Batch.Dispatch() when no messages have
	// been submitted to the batch.
	ErrEmptyBatch = errors.New("can not dispatch an empty batch")

	// ErrDispatched is returned by Batch.Dispatch() when the batch has
	// already been dispatched.
	ErrDispatched = errors.New("batch has already been dispatched")

	// ErrClosed is returned when an endpoint is requested from a
	// transmitter that has been closed.
	ErrClosed = errors.New("transmitter is closed")
)

// ProcessingError indicates that an endpoint failed to process a message.
type ProcessingError struct {
	Message *message.Message
	Cause   error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf(
		"unable to process message %s: %s",
		e.Message.ID,
		e.Cause,
	)
}

// Unwrap returns the underlying cause of the error.
func (e ProcessingError) Unwrap() error {
	return e.Cause
}
