package bboltx

// PanicSentinel wraps an error raised by Must() so that Recover() can tell it
// apart from any other panic.
type PanicSentinel struct {
	// Cause is the error passed to Must().
	Cause error
}

// Must panics with a PanicSentinel if err is non-nil.
//
// It allows the functions passed to Update() and View() to abort the
// transaction without threading errors through every bucket operation.
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

// Recover assigns the cause of a PanicSentinel panic to *err. Other panics
// are re-raised.
//
// It must be called directly by a deferred statement.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	r := recover()
	if r == nil {
		return
	}

	if s, ok := r.(PanicSentinel); ok {
		*err = s.Cause
		return
	}

	panic(r)
}
