package txn

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrTransactionEnded is returned when a local transaction is used after it
// has been committed or rolled back.
var ErrTransactionEnded = errors.New("transaction has already ended")

// LocalTransaction is an in-process engine.Transaction.
//
// It records the outcome of the transaction and can be made to fail in each
// phase. The zero-value is not usable, use NewLocalTransaction().
type LocalTransaction struct {
	// PrepareError, CommitError and RollbackError, if non-nil, are returned
	// by the corresponding phase.
	PrepareError  error
	CommitError   error
	RollbackError error

	id string

	m          sync.Mutex
	prepared   bool
	committed  bool
	rolledBack bool
	calls      []string
}

// NewLocalTransaction returns a new local transaction with a random ID.
func NewLocalTransaction() *LocalTransaction {
	return &LocalTransaction{
		id: uuid.NewString(),
	}
}

// ID returns the transaction's ID.
func (t *LocalTransaction) ID() string {
	return t.id
}

// Prepare is the first phase of the commit.
func (t *LocalTransaction) Prepare(context.Context) error {
	t.m.Lock()
	defer t.m.Unlock()

	t.calls = append(t.calls, "prepare")

	if t.committed || t.rolledBack {
		return ErrTransactionEnded
	}

	if t.PrepareError != nil {
		return t.PrepareError
	}

	t.prepared = true

	return nil
}

// Commit makes the transaction's effects durable.
func (t *LocalTransaction) Commit(context.Context) error {
	t.m.Lock()
	defer t.m.Unlock()

	t.calls = append(t.calls, "commit")

	if t.committed || t.rolledBack {
		return ErrTransactionEnded
	}

	if !t.prepared {
		return errors.New("transaction has not been prepared")
	}

	if t.CommitError != nil {
		return t.CommitError
	}

	t.committed = true

	return nil
}

// Rollback discards the transaction's effects.
func (t *LocalTransaction) Rollback(context.Context) error {
	t.m.Lock()
	defer t.m.Unlock()

	t.calls = append(t.calls, "rollback")

	if t.committed || t.rolledBack {
		return ErrTransactionEnded
	}

	if t.RollbackError != nil {
		return t.RollbackError
	}

	t.rolledBack = true

	return nil
}

// Committed returns true if the transaction has been committed.
func (t *LocalTransaction) Committed() bool {
	t.m.Lock()
	defer t.m.Unlock()

	return t.committed
}

// RolledBack returns true if the transaction has been rolled back.
func (t *LocalTransaction) RolledBack() bool {
	t.m.Lock()
	defer t.m.Unlock()

	return t.rolledBack
}

// Calls returns the names of the phases that have been invoked, in order.
func (t *LocalTransaction) Calls() []string {
	t.m.Lock()
	defer t.m.Unlock()

	return append([]string(nil), t.calls...)
}
