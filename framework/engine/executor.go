package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/helpers"
	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/syncctx"
)

// Source provides the candidate test methods of a run. discovery.ModuleSet is a Source.
type Source interface {
	TestMethods() []*meta.Method
}

// Methods is an explicit list of candidates.
type Methods []*meta.Method

func (m Methods) TestMethods() []*meta.Method { return m }

type executorConfig struct {
	logger      framework.Logger
	concurrent  bool
	workerCount int
	marshal     bool
	filters     RegexFilters
}

// ExecutorOption is an option for NewExecutor.
type ExecutorOption interface {
	helpers.ConfigOption[executorConfig]
}

type executorOption = helpers.OptionFunc[executorConfig]

// WithDebugLogger sets the logger for run lifecycle messages. The default discards them.
func WithDebugLogger(logger framework.Logger) ExecutorOption {
	return executorOption(func(c *executorConfig) error {
		c.logger = logger
		return nil
	})
}

// WithConcurrent sets the initial value of ConcurrentTestRuns.
func WithConcurrent(concurrent bool) ExecutorOption {
	return executorOption(func(c *executorConfig) error {
		c.concurrent = concurrent
		return nil
	})
}

// WithWorkerCount sets the number of workers for concurrent runs. The default is
// runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) ExecutorOption {
	return executorOption(func(c *executorConfig) error {
		if count < 1 {
			return fmt.Errorf("worker count must be at least 1, got %d", count)
		}
		c.workerCount = count
		return nil
	})
}

// WithMarshaling sends every event dispatch to the syncctx.Dispatcher carried by the context
// passed to NewExecutor.
func WithMarshaling() ExecutorOption {
	return executorOption(func(c *executorConfig) error {
		c.marshal = true
		return nil
	})
}

// WithFilters selects tests by name in addition to any group filter given to a run.
func WithFilters(filters RegexFilters) ExecutorOption {
	return executorOption(func(c *executorConfig) error {
		c.filters = filters
		return nil
	})
}

// Executor runs tests and publishes their events. Only one run can be active at a time, but
// handlers may be added and removed at any moment, including from inside a handler.
type Executor struct {
	config     executorConfig
	bus        *eventBus
	dispatcher syncctx.Dispatcher

	active     bool
	concurrent bool
	runLock    sync.Mutex

	cancelled atomic.Bool
}

// NewExecutor creates an executor. If ctx carries a syncctx.Dispatcher, HasSynchronizationContext
// is true; WithMarshaling requires one and fails with ErrNoSynchronizationContext otherwise.
func NewExecutor(ctx context.Context, options ...ExecutorOption) (*Executor, error) {
	config := executorConfig{
		logger:      framework.NullLogger(),
		workerCount: runtime.GOMAXPROCS(0),
	}
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return nil, err
	}
	if config.logger == nil {
		config.logger = framework.NullLogger()
	}
	dispatcher, _ := syncctx.FromContext(ctx)
	if config.marshal && dispatcher == nil {
		return nil, ErrNoSynchronizationContext
	}
	e := &Executor{
		config:     config,
		bus:        &eventBus{},
		dispatcher: dispatcher,
		concurrent: config.concurrent,
	}
	if config.marshal {
		e.bus.dispatcher = dispatcher
	}
	return e, nil
}

// Execute runs every test registered in the default discovery registry and waits for the run
// to finish. The error is a failure of an event handler, or ErrRunActive.
//
// With marshaling enabled Execute must not be called on the dispatcher's own goroutine, since
// it waits for the dispatcher to run each event; use BeginExecute there.
func (e *Executor) Execute(groups ...string) error {
	return e.ExecuteSource(discovery.Default().All(), groups...)
}

// ExecuteSource is like Execute but takes the candidates from src.
func (e *Executor) ExecuteSource(src Source, groups ...string) error {
	r, err := e.prepareRun(src, groups)
	if err != nil {
		return err
	}
	return r.execute()
}

// Cancel asks the current run to stop. A sequential run finishes the test in progress and then
// completes with the tests run so far. Workers of a concurrent run do not check for
// cancellation, so a concurrent run always runs to the end.
func (e *Executor) Cancel() {
	e.cancelled.Store(true)
	e.config.logger.Println("Cancellation requested")
}

// ConcurrentTestRuns returns true if runs are spread over several workers.
func (e *Executor) ConcurrentTestRuns() bool {
	e.runLock.Lock()
	defer e.runLock.Unlock()
	return e.concurrent
}

// SetConcurrentTestRuns changes the run strategy. It fails with ErrRunActive during a run.
func (e *Executor) SetConcurrentTestRuns(concurrent bool) error {
	e.runLock.Lock()
	defer e.runLock.Unlock()
	if e.active {
		return ErrRunActive
	}
	e.concurrent = concurrent
	return nil
}

// IsRunning returns true while a run is active.
func (e *Executor) IsRunning() bool {
	e.runLock.Lock()
	defer e.runLock.Unlock()
	return e.active
}

// MarshalEventHandlerExecution returns true if events are dispatched on the captured
// dispatcher.
func (e *Executor) MarshalEventHandlerExecution() bool {
	return e.config.marshal
}

// HasSynchronizationContext returns true if the executor was created with a dispatcher in its
// context.
func (e *Executor) HasSynchronizationContext() bool {
	return e.dispatcher != nil
}

func (e *Executor) OnRunStarted(fn func(RunStartedEvent) error) Subscription {
	return subscribe(e.bus, &e.bus.runStarted, fn)
}

func (e *Executor) OnRunCompleted(fn func(RunCompletedEvent) error) Subscription {
	return subscribe(e.bus, &e.bus.runCompleted, fn)
}

func (e *Executor) OnTestStarted(fn func(TestStartedEvent) error) Subscription {
	return subscribe(e.bus, &e.bus.testStarted, fn)
}

func (e *Executor) OnTestCompleted(fn func(TestCompletedEvent) error) Subscription {
	return subscribe(e.bus, &e.bus.testCompleted, fn)
}

func (e *Executor) OnTestSkipped(fn func(TestSkippedEvent) error) Subscription {
	return subscribe(e.bus, &e.bus.testSkipped, fn)
}

// Subscribe adds all the methods of a Listener as handlers.
func (e *Executor) Subscribe(l Listener) Subscription {
	return e.bus.subscribeAll(l)
}

// Unsubscribe removes the handlers of a subscription. It returns false if there were none.
func (e *Executor) Unsubscribe(s Subscription) bool {
	return e.bus.unsubscribe(s)
}

func (e *Executor) prepareRun(src Source, groups []string) (*run, error) {
	e.runLock.Lock()
	defer e.runLock.Unlock()
	if e.active {
		return nil, ErrRunActive
	}
	e.active = true
	e.cancelled.Store(false)
	return newRun(e, src, groups, e.concurrent), nil
}

func (e *Executor) finishRun() {
	e.runLock.Lock()
	e.active = false
	e.runLock.Unlock()
}
