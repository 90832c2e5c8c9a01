package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrDraining is returned by operations that attempt to admit new activity
// after the gate has started draining.
var ErrDraining = errors.New("activity gate is draining")

// Gate keeps count of the activities that are in-flight, so that shutdown can
// wait for them to finish instead of interrupting them.
//
// Once Drain() has been called no new activities are admitted. The zero-value
// is ready to use.
type Gate struct {
	m        sync.Mutex // guards count and draining as a pair
	idle     chan struct{}
	count    int
	draining bool
}

// Admit records the start of an activity.
//
// It returns false, without recording anything, if the gate is draining.
func (g *Gate) Admit() bool {
	g.m.Lock()
	defer g.m.Unlock()

	if g.draining {
		return false
	}

	g.count++

	return true
}

// AdmitN records the start of n activities.
//
// Admission is all-or-nothing: it returns false, without recording anything,
// if the gate is draining.
func (g *Gate) AdmitN(n int) bool {
	if n < 0 {
		panic("activity count must not be negative")
	}

	g.m.Lock()
	defer g.m.Unlock()

	if g.draining {
		return false
	}

	g.count += n

	return true
}

// Release records the end of an activity previously admitted by Admit().
//
// It panics if there is no matching call to Admit().
func (g *Gate) Release() {
	g.m.Lock()
	defer g.m.Unlock()

	if g.count == 0 {
		panic("activity gate released more times than it was admitted")
	}

	g.count--

	if g.count == 0 && g.idle != nil {
		close(g.idle)
	}
}

// Drain stops the gate from admitting any new activities, then blocks until
// all in-flight activities have been released.
//
// It returns immediately if there are no in-flight activities.
func (g *Gate) Drain() {
	<-g.drain()
}

// DrainContext is a variant of Drain() that stops waiting for in-flight
// activities when ctx is canceled.
//
// The gate remains in the draining state regardless of the result.
func (g *Gate) DrainContext(ctx context.Context) error {
	idle := g.drain()

	select {
	case <-idle:
		return nil
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-idle:
		return nil
	}
}

// IsDraining returns true if Drain() has been called.
func (g *Gate) IsDraining() bool {
	g.m.Lock()
	defer g.m.Unlock()

	return g.draining
}

// Count returns the number of in-flight activities.
func (g *Gate) Count() int {
	g.m.Lock()
	defer g.m.Unlock()

	return g.count
}

// drain puts the gate into the draining state and returns a channel that is
// closed once there are no in-flight activities.
//
// No activities are admitted once draining, so the channel is closed at most
// once.
func (g *Gate) drain() <-chan struct{} {
	g.m.Lock()
	defer g.m.Unlock()

	g.draining = true

	if g.idle == nil {
		g.idle = make(chan struct{})

		if g.count == 0 {
			close(g.idle)
		}
	}

	return g.idle
}
