package syncx

import (
	"context"
	"sync"
)

// UnlockFunc is a function used to unlock a previously locked mutex.
type UnlockFunc func()

// MutexNamespace is a set of context-aware mutexes identified by key.
//
// A mutex exists only while it is locked or has pending lockers.
type MutexNamespace struct {
	m       sync.Mutex
	mutexes map[string]*keyedMutex
}

type keyedMutex struct {
	guard   chan struct{} // buffered guard, send = lock, receive = unlock
	holders int           // pending or successful Lock() calls, guarded by ns.m
}

// Lock acquires an exclusive lock on the mutex identified by k.
//
// If the mutex is already locked, Lock() blocks until it is unlocked or ctx
// is canceled. The returned function unlocks the mutex, calling it more than
// once has no effect.
func (ns *MutexNamespace) Lock(ctx context.Context, k string) (UnlockFunc, error) {
	m := ns.acquire(k)

	select {
	case <-ctx.Done():
		ns.release(k, m)
		return nil, ctx.Err()

	case m.guard <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-m.guard
				ns.release(k, m)
			})
		}, nil
	}
}

// Len returns the number of mutexes that are currently locked or have
// pending lockers.
func (ns *MutexNamespace) Len() int {
	ns.m.Lock()
	defer ns.m.Unlock()

	return len(ns.mutexes)
}

func (ns *MutexNamespace) acquire(k string) *keyedMutex {
	ns.m.Lock()
	defer ns.m.Unlock()

	if ns.mutexes == nil {
		ns.mutexes = map[string]*keyedMutex{}
	}

	m, ok := ns.mutexes[k]
	if !ok {
		m = &keyedMutex{
			guard: make(chan struct{}, 1),
		}
		ns.mutexes[k] = m
	}

	m.holders++

	return m
}

func (ns *MutexNamespace) release(k string, m *keyedMutex) {
	ns.m.Lock()
	defer ns.m.Unlock()

	m.holders--

	if m.holders == 0 {
		delete(ns.mutexes, k)
	}
}
