package syncx

import (
	"context"
	"sync"
)

// Event is a one-shot signal that can be waited on by any number of
// goroutines.
//
// Once set, an event stays set. The zero-value is an unset event.
type Event struct {
	once sync.Once
	m    sync.Mutex
	ch   chan struct{}
}

// Set signals the event. Calling Set() on an event that is already set has
// no effect.
func (e *Event) Set() {
	ch := e.channel()
	e.once.Do(func() {
		close(ch)
	})
}

// IsSet returns true if the event has been signaled.
func (e *Event) IsSet() bool {
	select {
	case <-e.channel():
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the event is signaled.
func (e *Event) Done() <-chan struct{} {
	return e.channel()
}

// Wait blocks until the event is signaled or ctx is canceled.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.channel():
		return nil
	}
}

func (e *Event) channel() chan struct{} {
	e.m.Lock()
	defer e.m.Unlock()

	if e.ch == nil {
		e.ch = make(chan struct{})
	}

	return e.ch
}
