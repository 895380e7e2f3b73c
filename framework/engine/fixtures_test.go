package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/stretchr/testify/require"
)

type Basic struct{}

func (b *Basic) Passes(t *testctx.T) {
	t.Log("visible")
	t.LogOnFailure("secret")
}

func (b *Basic) Fails(t *testctx.T) {
	t.Log("a")
	t.Log("b")
	t.Fail("expected failure")
}

func (b *Basic) Throws() { panic("boom") }

func (b *Basic) Aborts(t *testctx.T) { t.Abort("giving up") }

func (b *Basic) ReturnsValue() int { return 1 }

type Grouped struct{}

func (g *Grouped) Groupless()  {}
func (g *Grouped) InFoo()      {}
func (g *Grouped) InBar()      {}
func (g *Grouped) InFooBar()   {}
func (g *Grouped) Unselected() {}

func mustMethod(t *testing.T, s discovery.Suite, name string) *meta.Method {
	require.NoError(t, s.Err())
	for _, m := range s.Type().Methods {
		if m.Name == name {
			return m
		}
	}
	require.FailNow(t, "no such method", name)
	return nil
}

func moduleOf(t *testing.T, rule discovery.Rule, suites ...discovery.Suite) discovery.ModuleSet {
	module := discovery.NewModule(t.Name(), rule)
	require.NoError(t, module.Add(suites...))
	return discovery.ModuleSet{module}
}

func newTestExecutor(t *testing.T, options ...ExecutorOption) *Executor {
	e, err := NewExecutor(context.Background(), options...)
	require.NoError(t, err)
	return e
}

// eventRecorder keeps every event in the order it was published.
type eventRecorder struct {
	events []any
	lock   sync.Mutex
}

func (r *eventRecorder) add(e any) error {
	r.lock.Lock()
	r.events = append(r.events, e)
	r.lock.Unlock()
	return nil
}

func (r *eventRecorder) RunStarted(e RunStartedEvent) error       { return r.add(e) }
func (r *eventRecorder) RunCompleted(e RunCompletedEvent) error   { return r.add(e) }
func (r *eventRecorder) TestStarted(e TestStartedEvent) error     { return r.add(e) }
func (r *eventRecorder) TestCompleted(e TestCompletedEvent) error { return r.add(e) }
func (r *eventRecorder) TestSkipped(e TestSkippedEvent) error     { return r.add(e) }

func (r *eventRecorder) all() []any {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]any(nil), r.events...)
}

func eventsOf[E any](r *eventRecorder) []E {
	var ret []E
	for _, e := range r.all() {
		if typed, ok := e.(E); ok {
			ret = append(ret, typed)
		}
	}
	return ret
}

func completedByName(r *eventRecorder) map[string]TestCompletedEvent {
	ret := make(map[string]TestCompletedEvent)
	for _, e := range eventsOf[TestCompletedEvent](r) {
		ret[e.Test.MethodName] = e
	}
	return ret
}
