package spy

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrGoexit is recorded when the wrapped function ends its goroutine with
// runtime.Goexit, as t.FailNow does, instead of returning.
var ErrGoexit = errors.New("spy: wrapped function called runtime.Goexit")

// PanicError is recorded when the wrapped function panics.
type PanicError struct {
	// Value is what was passed to panic.
	Value any
	// Stack is the goroutine stack at the point of recovery.
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("spy: wrapped function panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error, so errors.Is and
// errors.As see through the panic.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
