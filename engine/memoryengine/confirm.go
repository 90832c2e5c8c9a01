package memoryengine

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
// For transactional batches the effects of the batch are held back until the
// commit is confirmed.
type confirmer struct {
	engine   *Engine
	executed chan struct{} // closed once staged is final

	m         sync.Mutex
	staged    []Operation
	confirmed bool
}

func (c *confirmer) ConfirmCommit(ctx context.Context, committed bool) error {
	if c.engine.ConfirmFault != nil {
		if err := c.engine.ConfirmFault(committed); err != nil {
			return err
		}
	}

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
	c.engine.confirm(committed, c.staged)
	c.staged = nil

	return nil
}
