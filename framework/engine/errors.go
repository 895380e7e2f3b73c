package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRunActive is returned when starting a run, or changing a run setting, while a run is
	// already in progress on the same executor.
	ErrRunActive = errors.New("a test run is already active on this executor")

	// ErrInvalidHandle is returned by EndExecute for a nil handle or one that was returned by
	// a different executor.
	ErrInvalidHandle = errors.New("handle was not returned by BeginExecute on this executor")

	// ErrHandleConsumed is returned by EndExecute when it was already called for the handle.
	ErrHandleConsumed = errors.New("EndExecute was already called for this handle")

	// ErrNoSynchronizationContext is returned by NewExecutor when event marshaling is requested
	// but the context carries no dispatcher.
	ErrNoSynchronizationContext = errors.New("event marshaling requires a dispatcher in the context")
)

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// faultTypeName is the Go type of a fault as shown in messages. For a recovered panic it is the
// type of the panic value.
func faultTypeName(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%T", pe.Value)
	}
	return fmt.Sprintf("%T", err)
}
