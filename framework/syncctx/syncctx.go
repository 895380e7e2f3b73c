// Package syncctx provides an execution context that event handlers can be marshaled onto.
//
// An engine.Executor created with marshaling enabled captures the Dispatcher carried by the
// context.Context it was constructed with, and from then on runs every event handler through
// that Dispatcher instead of on the goroutine that raised the event.
package syncctx

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after the loop has been closed.
var ErrClosed = errors.New("event loop is closed")

// Dispatcher runs functions on an execution context it owns.
type Dispatcher interface {
	// Send runs fn on the dispatcher's context and waits for it to return. Functions sent from
	// a single goroutine run in the order they were sent.
	Send(fn func()) error
}

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var dispatcherKey = key{}

// WithDispatcher returns a new context carrying d.
func WithDispatcher(ctx context.Context, d Dispatcher) context.Context {
	return context.WithValue(ctx, dispatcherKey, d)
}

// FromContext returns the Dispatcher carried by ctx, if any.
func FromContext(ctx context.Context) (Dispatcher, bool) {
	if ctx == nil {
		return nil, false
	}
	d, ok := ctx.Value(dispatcherKey).(Dispatcher)
	return d, ok && d != nil
}

type job struct {
	fn   func()
	done chan struct{}
}

// EventLoop is a Dispatcher backed by a single goroutine processing a FIFO queue. The
// goroutine is the one that calls Run.
//
// Send blocks until the function has run, so it must not be called from the loop
// goroutine itself.
type EventLoop struct {
	jobs      chan job
	closeOnce sync.Once
	closed    chan struct{}
	stopped   chan struct{}
}

// NewEventLoop creates a loop. Nothing is processed until Run is called.
func NewEventLoop() *EventLoop {
	return &EventLoop{
		jobs:    make(chan job),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run processes sent functions until Close is called or ctx is done.
func (l *EventLoop) Run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case j := <-l.jobs:
			l.runJob(j)
		case <-l.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *EventLoop) runJob(j job) {
	defer close(j.done)
	j.fn()
}

// Send implements Dispatcher. A panic in fn unwinds the loop goroutine, the same as any other
// panic in it; callers that need to survive handler panics recover inside fn.
func (l *EventLoop) Send(fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case l.jobs <- j:
	case <-l.closed:
		return ErrClosed
	case <-l.stopped:
		return ErrClosed
	}
	<-j.done
	return nil
}

// Close stops the loop after the function currently running, if any.
func (l *EventLoop) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// Stopped is closed once Run has returned.
func (l *EventLoop) Stopped() <-chan struct{} {
	return l.stopped
}
