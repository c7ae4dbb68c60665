package runtime

import "errors"

var (
	// ErrIllegalTransition reports a command that is not legal in the
	// current phase. Handlers surface it as feedback, never as a fault.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrClosed reports use of a runtime that has already exited.
	ErrClosed = errors.New("runtime closed")
)
