package fixtures

import (
	"context"

	"github.com/kakkerlakgly/adapterkit/engine"
)

// TransactionStub is a test implementation of the engine.Transaction
// interface.
type TransactionStub struct {
	engine.Transaction

	IDFunc       func() string
	PrepareFunc  func(context.Context) error
	CommitFunc   func(context.Context) error
	RollbackFunc func(context.Context) error
}

// ID returns the transaction's ID.
func (t *TransactionStub) ID() string {
	if t.IDFunc != nil {
		return t.IDFunc()
	}

	if t.Transaction != nil {
		return t.Transaction.ID()
	}

	return "<tx>"
}

// Prepare prepares the transaction to be committed.
func (t *TransactionStub) Prepare(ctx context.Context) error {
	if t.PrepareFunc != nil {
		return t.PrepareFunc(ctx)
	}

	if t.Transaction != nil {
		return t.Transaction.Prepare(ctx)
	}

	return nil
}

// Commit commits the transaction.
func (t *TransactionStub) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}

	if t.Transaction != nil {
		return t.Transaction.Commit(ctx)
	}

	return nil
}

// Rollback aborts the transaction.
func (t *TransactionStub) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}

	if t.Transaction != nil {
		return t.Transaction.Rollback(ctx)
	}

	return nil
}
