package boltengine

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyConfirmed is returned when the outcome of a transaction is
// reported more than once.
var ErrAlreadyConfirmed = errors.New("commit has already been confirmed")

// confirmer is the engine.CommitConfirmer returned by batch.Done().
//
// The operations of a transactional batch are validated when the batch
// executes, but only written once the commit is confirmed.
type confirmer struct {
	engine   *Engine
	executed chan struct{} // closed once staged is final

	m         sync.Mutex
	staged    []operation
	confirmed bool
}

func (c *confirmer) ConfirmCommit(ctx context.Context, committed bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.executed:
	}

	c.m.Lock()
	defer c.m.Unlock()

	if c.confirmed {
		return ErrAlreadyConfirmed
	}

	c.confirmed = true
	ops := c.staged
	c.staged = nil

	if !committed || len(ops) == 0 {
		return nil
	}

	return c.engine.confirm(ops)
}
