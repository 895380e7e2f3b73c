package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/launchdarkly/test-engine/framework/discovery"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockDuration = 50 * time.Millisecond

type Blocker struct{}

func (b *Blocker) Blocks() { time.Sleep(blockDuration) }

func TestPartition(t *testing.T) {
	assert.Nil(t, partition([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, partition([]int{1, 2, 3, 4, 5}, 3))
	assert.Equal(t, [][]int{{1}, {2}}, partition([]int{1, 2}, 8))
	assert.Equal(t, [][]int{{1, 2, 3}}, partition([]int{1, 2, 3}, 1))
	assert.Equal(t, [][]int{{1, 2}, {3}, {4}, {5}}, partition([]int{1, 2, 3, 4, 5}, 4))
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}, {6, 7}, {8, 9}}, partition([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}, 4))
	assert.Len(t, partition(make([]int, 401), 4), 4)
}

func TestConcurrentRunUsesEveryWorker(t *testing.T) {
	var constructed atomic.Int32
	suite := discovery.SuiteOf[Blocker](discovery.WithConstructor(func() (*Blocker, error) {
		constructed.Add(1)
		return &Blocker{}, nil
	}))
	blocks := mustMethod(t, suite, "Blocks")
	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(4))

	require.NoError(t, e.ExecuteSource(Methods{blocks, blocks, blocks, blocks, blocks}))
	assert.Equal(t, int32(4), constructed.Load())
}

func TestConcurrentRunMergesCounts(t *testing.T) {
	src := moduleOf(t, discovery.RuleExported, discovery.SuiteOf[Basic]())
	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(2))
	rec := &eventRecorder{}
	e.Subscribe(rec)

	require.NoError(t, e.ExecuteSource(src))

	completed := eventsOf[RunCompletedEvent](rec)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Concurrent)
	assert.Equal(t, Counts{Total: 5, Passed: 1, Failed: 1, Threw: 1, Skipped: 1, Aborted: 1}, completed[0].Counts)
	for _, ev := range eventsOf[TestCompletedEvent](rec) {
		assert.True(t, ev.Concurrent)
	}
	assert.Equal(t, "ab", completedByName(rec)["Fails"].Log)
}

func TestConcurrentWorkersUseOwnInstances(t *testing.T) {
	var constructed atomic.Int32
	suite := discovery.SuiteOf[Blocker](discovery.WithConstructor(func() (*Blocker, error) {
		constructed.Add(1)
		return &Blocker{}, nil
	}))
	blocks := mustMethod(t, suite, "Blocks")
	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(3))

	require.NoError(t, e.ExecuteSource(Methods{blocks, blocks, blocks, blocks, blocks, blocks}))
	assert.Equal(t, int32(3), constructed.Load())
}

func TestConcurrentHandlerFaultsAreAggregatedPerWorker(t *testing.T) {
	const workers = 4
	blocks := mustMethod(t, discovery.SuiteOf[Blocker](), "Blocks")
	var methods Methods
	for i := 0; i < workers*100; i++ {
		methods = append(methods, blocks)
	}

	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(workers))
	fault := errors.New("handler fault")
	var faults atomic.Int32
	e.OnTestCompleted(func(TestCompletedEvent) error {
		faults.Add(1)
		return fault
	})
	runCompleted := false
	e.OnRunCompleted(func(RunCompletedEvent) error {
		runCompleted = true
		return nil
	})

	start := time.Now()
	err := e.ExecuteSource(methods)
	elapsed := time.Since(start)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, workers)
	for _, werr := range merr.Errors {
		assert.ErrorIs(t, werr, fault)
	}
	assert.Equal(t, int32(workers), faults.Load())
	assert.False(t, runCompleted)
	assert.Less(t, elapsed, 20*blockDuration)
	assert.False(t, e.IsRunning())
}

func TestConcurrentFaultOnlyStopsOneWorker(t *testing.T) {
	basic := discovery.SuiteOf[Basic]()
	grouped := discovery.SuiteOf[Grouped]()
	// two workers: the first gets the Basic tests, the second the Grouped ones
	methods := Methods{
		mustMethod(t, basic, "Fails"),
		mustMethod(t, basic, "Passes"),
		mustMethod(t, grouped, "InBar"),
		mustMethod(t, grouped, "InFoo"),
	}
	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(2))
	var lock sync.Mutex
	var completed []string
	e.OnTestCompleted(func(ev TestCompletedEvent) error {
		lock.Lock()
		completed = append(completed, ev.Test.DisplayName)
		lock.Unlock()
		if ev.Test.TypeName == "Basic" {
			return errors.New("no")
		}
		return nil
	})

	err := e.ExecuteSource(methods)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 1)
	assert.ElementsMatch(t, []string{"Basic.Fails", "Grouped.InBar", "Grouped.InFoo"}, completed)
}

func TestCancelDoesNotStopConcurrentRun(t *testing.T) {
	blocks := mustMethod(t, discovery.SuiteOf[Blocker](), "Blocks")
	e := newTestExecutor(t, WithConcurrent(true), WithWorkerCount(2))
	e.OnTestStarted(func(TestStartedEvent) error {
		e.Cancel()
		return nil
	})
	rec := &eventRecorder{}
	e.Subscribe(rec)

	require.NoError(t, e.ExecuteSource(Methods{blocks, blocks, blocks, blocks}))
	completed := eventsOf[RunCompletedEvent](rec)
	require.Len(t, completed, 1)
	assert.Equal(t, 4, completed[0].Counts.Passed)
	assert.False(t, completed[0].Cancelled)
}
