package engine

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// AsyncResult is the handle of a run started with BeginExecute. Pass it to EndExecute exactly
// once.
type AsyncResult struct {
	owner    *Executor
	state    any
	callback func(*AsyncResult)

	completed atomic.Bool
	done      chan struct{}
	once      sync.Once
	err       error

	consumed atomic.Bool
}

func newAsyncResult(owner *Executor, callback func(*AsyncResult), state any) *AsyncResult {
	return &AsyncResult{
		owner:    owner,
		state:    state,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// AsyncState returns the state value given to BeginExecute.
func (h *AsyncResult) AsyncState() any { return h.state }

// IsCompleted returns true once the run has finished.
func (h *AsyncResult) IsCompleted() bool { return h.completed.Load() }

// Done is closed when the run has finished.
func (h *AsyncResult) Done() <-chan struct{} { return h.done }

// CompletedSynchronously is always false: the run never happens on the goroutine that called
// BeginExecute.
func (h *AsyncResult) CompletedSynchronously() bool { return false }

func (h *AsyncResult) complete(err error) {
	h.once.Do(func() {
		h.err = err
		h.completed.Store(true)
		close(h.done)
		if h.callback != nil {
			h.runCallback()
		}
	})
}

// runCallback logs a panicking callback instead of letting it end the process.
func (h *AsyncResult) runCallback() {
	defer func() {
		if p := recover(); p != nil {
			h.owner.config.logger.Printf("BeginExecute callback panicked: %v\n%s", p, debug.Stack())
		}
	}()
	h.callback(h)
}

// BeginExecute starts a run on a new goroutine and returns at once. ErrRunActive is returned
// immediately if a run is already active. The callback, if not nil, is called on the run's
// goroutine when the run has finished; by then IsCompleted is true and Done is closed. A
// panic in the callback is recovered and written to the debug logger.
func (e *Executor) BeginExecute(src Source, groups []string, callback func(*AsyncResult), state any) (*AsyncResult, error) {
	r, err := e.prepareRun(src, groups)
	if err != nil {
		return nil, err
	}
	h := newAsyncResult(e, callback, state)
	go func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = &PanicError{Value: p, Stack: debug.Stack()}
			}
			h.complete(err)
		}()
		err = r.execute()
	}()
	return h, nil
}

// EndExecute waits for the run of h to finish and returns its error, with the same meaning
// as for Execute. It fails with ErrInvalidHandle if h is nil or came from another executor,
// and with ErrHandleConsumed if it was already called for h.
func (e *Executor) EndExecute(h *AsyncResult) error {
	if h == nil || h.owner != e {
		return ErrInvalidHandle
	}
	if !h.consumed.CompareAndSwap(false, true) {
		return ErrHandleConsumed
	}
	<-h.done
	return h.err
}
