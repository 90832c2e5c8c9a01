package batch

import (
	"errors"
	"fmt"

	"github.com/kakkerlakgly/adapterkit/engine"
)

var (
	// ErrEmptyBatch is the reason given when a batch with no operations is
	// submitted.
	ErrEmptyBatch = errors.New("batch does not contain any operations")

	// ErrMixedSubmit is the reason given when submissions and response
	// submissions are added to the same batch.
	ErrMixedSubmit = errors.New("submit and submit-response operations can not be mixed within a single batch")
)

// ContractViolation is an error indicating that a batch was used incorrectly.
//
// It is always returned by the call that violates the contract, before any
// part of the operation is forwarded to the engine.
type ContractViolation struct {
	// Operation is the name of the rejected call, such as "submit" or
	// "done".
	Operation string

	// Reason describes the violated contract.
	Reason error
}

func (e ContractViolation) Error() string {
	return fmt.Sprintf(
		"batch contract violation in %s operation: %s",
		e.Operation,
		e.Reason,
	)
}

// Unwrap returns the reason for the violation.
func (e ContractViolation) Unwrap() error {
	return e.Reason
}

func violation(k engine.Kind, reason error) ContractViolation {
	return ContractViolation{
		Operation: k.String(),
		Reason:    reason,
	}
}
