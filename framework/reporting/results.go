package reporting

import (
	"sync"
	"time"

	"github.com/launchdarkly/test-engine/framework/engine"
)

// Results is what a run did, test by test, in the order tests finished.
type Results struct {
	RunID     string
	Tests     []TestResult
	Failures  []TestResult
	Counts    engine.Counts
	StartTime time.Time
	EndTime   time.Time
	Completed bool
}

// TestResult is the final state of one test. Skipped tests have Skipped set and no Outcome.
type TestResult struct {
	Test        engine.TestInfo
	Outcome     engine.Outcome
	Skipped     bool
	SkipReason  engine.SkipReason
	Message     string
	UserMessage string
	Errors      []error
	Log         string
	Duration    time.Duration
}

// Failed is true for a test that ran and did not pass.
func (r TestResult) Failed() bool {
	return !r.Skipped && r.Outcome != engine.Passed
}

// OK is true if the run completed and no test failed.
func (r Results) OK() bool {
	return r.Completed && len(r.Failures) == 0
}

// Collector is a Listener that builds Results. It is safe for concurrent runs.
type Collector struct {
	engine.NullListener
	results Results
	lock    sync.Mutex
}

func NewCollector() *Collector {
	return &Collector{}
}

// Results returns a copy of what has been collected so far.
func (c *Collector) Results() Results {
	c.lock.Lock()
	defer c.lock.Unlock()
	ret := c.results
	ret.Tests = append([]TestResult(nil), c.results.Tests...)
	ret.Failures = append([]TestResult(nil), c.results.Failures...)
	return ret
}

func (c *Collector) RunStarted(e engine.RunStartedEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.results = Results{RunID: e.RunID, StartTime: e.StartTime}
	return nil
}

func (c *Collector) RunCompleted(e engine.RunCompletedEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.results.Counts = e.Counts
	c.results.EndTime = e.EndTime
	c.results.Completed = true
	return nil
}

func (c *Collector) TestCompleted(e engine.TestCompletedEvent) error {
	c.add(TestResult{
		Test:        e.Test,
		Outcome:     e.Outcome,
		Message:     e.Message,
		UserMessage: e.UserMessage,
		Errors:      e.Errors,
		Log:         e.Log,
		Duration:    e.EndTime.Sub(e.StartTime),
	})
	return nil
}

func (c *Collector) TestSkipped(e engine.TestSkippedEvent) error {
	c.add(TestResult{
		Test:       e.Test,
		Skipped:    true,
		SkipReason: e.Reason,
		Message:    e.Message,
	})
	return nil
}

func (c *Collector) add(r TestResult) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.results.Tests = append(c.results.Tests, r)
	if r.Failed() {
		c.results.Failures = append(c.results.Failures, r)
	}
}
