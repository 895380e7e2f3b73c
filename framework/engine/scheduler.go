package engine

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/helpers"
	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"
)

// run is the state of one execution, from prepareRun to finishRun.
type run struct {
	executor   *Executor
	id         string
	source     Source
	groups     []string
	concurrent bool
}

func newRun(e *Executor, src Source, groups []string, concurrent bool) *run {
	return &run{
		executor:   e,
		id:         uuid.New().String(),
		source:     src,
		groups:     helpers.CopyOf(groups),
		concurrent: concurrent,
	}
}

func (r *run) execute() error {
	defer r.executor.finishRun()
	logger := r.executor.config.logger

	candidates := r.selectCandidates()
	startTime := time.Now()
	logger.Printf("Starting run %s with %d tests (concurrent: %t)", r.id, len(candidates), r.concurrent)

	if err := publish(r.executor.bus, &r.executor.bus.runStarted, RunStartedEvent{
		RunID:      r.id,
		Total:      len(candidates),
		StartTime:  startTime,
		Concurrent: r.concurrent,
	}); err != nil {
		return err
	}

	var counts Counts
	var cancelled bool
	var err error
	if r.concurrent {
		counts, err = r.runConcurrent(candidates)
	} else {
		counts, cancelled, err = r.runSequential(candidates)
	}
	if err != nil {
		logger.Printf("Run %s ended by an event handler failure: %s", r.id, err)
		return err
	}

	endTime := time.Now()
	logger.Printf("Run %s finished in %s: %+v", r.id, endTime.Sub(startTime), counts)
	return publish(r.executor.bus, &r.executor.bus.runCompleted, RunCompletedEvent{
		RunID:      r.id,
		Counts:     counts,
		StartTime:  startTime,
		EndTime:    endTime,
		Cancelled:  cancelled,
		Concurrent: r.concurrent,
	})
}

// selectCandidates applies the group and name filters and sorts by type name, then method
// name.
func (r *run) selectCandidates() []*meta.Method {
	filters := r.executor.config.filters
	var ret []*meta.Method
	for _, m := range r.source.TestMethods() {
		if m == nil || !MatchesGroups(m.Markers.Groups, r.groups) {
			continue
		}
		if filters.IsDefined() && !filters.Match(infoOf(m)) {
			continue
		}
		ret = append(ret, m)
	}
	slices.SortStableFunc(ret, compareMethods)
	return ret
}

func compareMethods(a, b *meta.Method) int {
	an, bn := typeName(a), typeName(b)
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	}
	return 0
}

func typeName(m *meta.Method) string {
	if m.Type == nil {
		return ""
	}
	return m.Type.Name
}

func (r *run) runSequential(candidates []*meta.Method) (Counts, bool, error) {
	w := newWorker(r, 0)
	defer w.slot.Dispose()
	for _, m := range candidates {
		if r.executor.cancelled.Load() {
			r.executor.config.logger.Printf("Run %s cancelled", r.id)
			return w.counts, true, nil
		}
		if err := w.runOne(m); err != nil {
			return w.counts, false, err
		}
	}
	return w.counts, false, nil
}

type workerResult struct {
	counts Counts
	err    error
}

// runConcurrent cuts the sorted candidates into contiguous chunks, one per worker. A worker
// whose event handler fails stops and reports the failure; the others carry on. The result
// is an aggregate of one error per failed worker.
func (r *run) runConcurrent(candidates []*meta.Method) (Counts, error) {
	chunks := partition(candidates, r.executor.config.workerCount)
	results := make([]workerResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(index int, chunk []*meta.Method) {
			defer wg.Done()
			w := newWorker(r, index)
			defer w.slot.Dispose()
			r.executor.config.logger.Printf("Worker %d starting with %d tests", index, len(chunk))
			for _, m := range chunk {
				if err := w.runOne(m); err != nil {
					results[index].err = fmt.Errorf("worker %d: %w", index, err)
					break
				}
			}
			results[index].counts = w.counts
		}(i, chunk)
	}
	wg.Wait()

	var counts Counts
	var errs *multierror.Error
	for _, res := range results {
		counts.Merge(res.counts)
		if res.err != nil {
			errs = multierror.Append(errs, res.err)
		}
	}
	return counts, errs.ErrorOrNil()
}

// partition splits items into min(n, len) contiguous chunks. Sizes differ by at most one; the
// first len%n chunks take the extra item.
func partition[V any](items []V, n int) [][]V {
	if len(items) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}
	size, extra := len(items)/n, len(items)%n
	ret := make([][]V, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		ret = append(ret, items[start:end])
		start = end
	}
	return ret
}

// worker runs tests one after another with its own instance slot and counters.
type worker struct {
	run       *run
	index     int
	slot      *InstanceSlot
	pipelines map[*meta.Type]*ActionPipeline
	counts    Counts
}

func newWorker(r *run, index int) *worker {
	return &worker{
		run:       r,
		index:     index,
		slot:      NewInstanceSlot(framework.LoggerWithPrefix(r.executor.config.logger, fmt.Sprintf("[worker %d] ", index))),
		pipelines: make(map[*meta.Type]*ActionPipeline),
	}
}

func (w *worker) pipeline(t *meta.Type) *ActionPipeline {
	p, ok := w.pipelines[t]
	if !ok {
		p = PipelineFor(t)
		w.pipelines[t] = p
	}
	return p
}

// runOne takes a candidate through validation, instance resolution and the action pipeline.
// The only error it returns is a failing event handler.
func (w *worker) runOne(m *meta.Method) error {
	if ok, reason, msg := IsValid(m); !ok {
		return w.skipped(infoOf(m), Skip{Reason: reason, Message: msg})
	}
	d := newTestDescriptor(m)
	if m.Markers.Skip.IsDefined() {
		return w.skipped(d.Info, Skip{Reason: SkipMarkerDefined, Message: m.Markers.Skip.Value()})
	}
	instance, skip := w.slot.Resolve(d)
	if skip != nil {
		return w.skipped(d.Info, *skip)
	}

	bus := w.run.executor.bus
	startTime := time.Now()
	if err := publish(bus, &bus.testStarted, TestStartedEvent{
		RunID:      w.run.id,
		Test:       d.Info,
		StartTime:  startTime,
		Concurrent: w.run.concurrent,
	}); err != nil {
		return err
	}

	t := testctx.New()
	args := contextArgs(d.AcceptsContext, reflect.ValueOf(t))
	result := w.pipeline(d.Type).RunAround(instance, t, func() {
		d.Method.Invoke(instance, args...)
	})
	endTime := time.Now()
	w.counts.addOutcome(result.Outcome)

	return publish(bus, &bus.testCompleted, TestCompletedEvent{
		RunID:       w.run.id,
		Test:        d.Info,
		Outcome:     result.Outcome,
		Message:     result.Message,
		UserMessage: result.UserMessage,
		Errors:      result.Errors,
		Log:         t.RenderLog(result.Outcome != Passed),
		Fault:       result.Fault,
		StartTime:   startTime,
		EndTime:     endTime,
		Concurrent:  w.run.concurrent,
	})
}

func (w *worker) skipped(info TestInfo, skip Skip) error {
	w.counts.addSkip()
	bus := w.run.executor.bus
	return publish(bus, &bus.testSkipped, TestSkippedEvent{
		RunID:      w.run.id,
		Test:       info,
		Reason:     skip.Reason,
		Message:    skip.Message,
		Fault:      skip.Fault,
		StartTime:  time.Now(),
		Concurrent: w.run.concurrent,
	})
}
