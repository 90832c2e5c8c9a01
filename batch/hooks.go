package batch

import "github.com/kakkerlakgly/adapterkit/engine"

// Hooks is a set of functions that are called as a batch result is
// dispatched. Any of the functions may be nil.
type Hooks struct {
	// BatchStart is called first, with the overall batch status.
	BatchStart func(engine.Status)

	// FailureStart and FailureEnd bracket the per-entry calls.
	FailureStart func()
	FailureEnd   func()

	// BatchEnd is called last.
	BatchEnd func()

	// OnFailure and OnSuccess hold the per-entry hooks for specific
	// operation kinds.
	OnFailure map[engine.Kind]func(Entry)
	OnSuccess map[engine.Kind]func(Entry)

	// Failure and Success are called for entries whose kind has no hook in
	// OnFailure or OnSuccess, respectively.
	Failure func(Entry)
	Success func(Entry)
}

// Dispatch calls the hooks in h for the entries in r.
//
// The per-entry hooks are visited when the batch failed, when
// makeSuccessCalls is true or when any individual entry failed. Failure
// hooks are called for every entry with a negative status regardless of
// makeSuccessCalls. Success hooks are only called when makeSuccessCalls is
// true.
func (r Result) Dispatch(h Hooks, makeSuccessCalls bool) {
	if h.BatchStart != nil {
		h.BatchStart(r.Status)
	}

	if makeSuccessCalls || r.AnyFailed() {
		if h.FailureStart != nil {
			h.FailureStart()
		}

		for _, op := range r.Operations {
			for _, e := range op.Entries {
				if e.Status.Failed() {
					h.failure(e)
				} else if makeSuccessCalls {
					h.success(e)
				}
			}
		}

		if h.FailureEnd != nil {
			h.FailureEnd()
		}
	}

	if h.BatchEnd != nil {
		h.BatchEnd()
	}
}

func (h Hooks) failure(e Entry) {
	if fn, ok := h.OnFailure[e.Kind]; ok {
		fn(e)
	} else if h.Failure != nil {
		h.Failure(e)
	}
}

func (h Hooks) success(e Entry) {
	if fn, ok := h.OnSuccess[e.Kind]; ok {
		fn(e)
	} else if h.Success != nil {
		h.Success(e)
	}
}
