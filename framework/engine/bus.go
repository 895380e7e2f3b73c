package engine

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/launchdarkly/test-engine/framework/syncctx"
)

// Subscription identifies handlers added with one On or Subscribe call.
type Subscription struct {
	id uint64
}

type handlerEntry[E any] struct {
	id uint64
	fn func(E) error
}

type handlerList[E any] []handlerEntry[E]

func (l handlerList[E]) without(id uint64) handlerList[E] {
	var ret handlerList[E]
	for _, h := range l {
		if h.id != id {
			ret = append(ret, h)
		}
	}
	return ret
}

// eventBus is the subscriber lists plus an optional dispatcher that every publish is sent to.
// The lock only guards the lists; handlers are called with it released, against a copy of the
// list taken at publish time.
type eventBus struct {
	dispatcher syncctx.Dispatcher

	runStarted    handlerList[RunStartedEvent]
	runCompleted  handlerList[RunCompletedEvent]
	testStarted   handlerList[TestStartedEvent]
	testCompleted handlerList[TestCompletedEvent]
	testSkipped   handlerList[TestSkippedEvent]

	nextID uint64
	lock   sync.Mutex
}

func (b *eventBus) newID() uint64 {
	b.nextID++
	return b.nextID
}

func subscribe[E any](b *eventBus, list *handlerList[E], fn func(E) error) Subscription {
	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.newID()
	*list = append(*list, handlerEntry[E]{id: id, fn: fn})
	return Subscription{id: id}
}

func (b *eventBus) subscribeAll(l Listener) Subscription {
	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.newID()
	b.runStarted = append(b.runStarted, handlerEntry[RunStartedEvent]{id, l.RunStarted})
	b.runCompleted = append(b.runCompleted, handlerEntry[RunCompletedEvent]{id, l.RunCompleted})
	b.testStarted = append(b.testStarted, handlerEntry[TestStartedEvent]{id, l.TestStarted})
	b.testCompleted = append(b.testCompleted, handlerEntry[TestCompletedEvent]{id, l.TestCompleted})
	b.testSkipped = append(b.testSkipped, handlerEntry[TestSkippedEvent]{id, l.TestSkipped})
	return Subscription{id: id}
}

func (b *eventBus) unsubscribe(s Subscription) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	before := b.handlerCount()
	b.runStarted = b.runStarted.without(s.id)
	b.runCompleted = b.runCompleted.without(s.id)
	b.testStarted = b.testStarted.without(s.id)
	b.testCompleted = b.testCompleted.without(s.id)
	b.testSkipped = b.testSkipped.without(s.id)
	return b.handlerCount() != before
}

func (b *eventBus) handlerCount() int {
	return len(b.runStarted) + len(b.runCompleted) + len(b.testStarted) + len(b.testCompleted) +
		len(b.testSkipped)
}

// publish calls the handlers in subscription order and stops at the first one that fails.
// With a dispatcher, the calls happen on the dispatcher and publish waits for them.
func publish[E any](b *eventBus, list *handlerList[E], event E) error {
	b.lock.Lock()
	snapshot := append(handlerList[E](nil), (*list)...)
	b.lock.Unlock()
	if len(snapshot) == 0 {
		return nil
	}

	dispatch := func() error {
		for _, h := range snapshot {
			if err := callHandler(h.fn, event); err != nil {
				return err
			}
		}
		return nil
	}
	if b.dispatcher == nil {
		return dispatch()
	}
	var err error
	if sendErr := b.dispatcher.Send(func() { err = dispatch() }); sendErr != nil {
		return fmt.Errorf("could not dispatch %T: %w", event, sendErr)
	}
	return err
}

func callHandler[E any](fn func(E) error, event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(event)
}
