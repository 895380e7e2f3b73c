package engine

import (
	"time"
)

// Counts are the outcome counters of a run. Total is always the sum of the others.
type Counts struct {
	Total   int
	Passed  int
	Failed  int
	Threw   int
	Skipped int
	Aborted int
}

func (c *Counts) addOutcome(o Outcome) {
	switch o {
	case Passed:
		c.Passed++
	case Failed:
		c.Failed++
	case ExceptionThrown:
		c.Threw++
	case Aborted:
		c.Aborted++
	}
	c.Total++
}

func (c *Counts) addSkip() {
	c.Skipped++
	c.Total++
}

// Merge adds the counters of other.
func (c *Counts) Merge(other Counts) {
	c.Total += other.Total
	c.Passed += other.Passed
	c.Failed += other.Failed
	c.Threw += other.Threw
	c.Skipped += other.Skipped
	c.Aborted += other.Aborted
}

// Sum adds up the outcome and skip counters.
func (c Counts) Sum() int {
	return c.Passed + c.Failed + c.Threw + c.Skipped + c.Aborted
}

// RunStartedEvent is published once per run, before any test event. Total is the number of
// candidates that passed the filters.
type RunStartedEvent struct {
	RunID      string
	Total      int
	StartTime  time.Time
	Concurrent bool
}

// RunCompletedEvent is published once when a run ends normally or was cancelled. It is not
// published when a run ends because an event handler failed.
type RunCompletedEvent struct {
	RunID      string
	Counts     Counts
	StartTime  time.Time
	EndTime    time.Time
	Cancelled  bool
	Concurrent bool
}

type TestStartedEvent struct {
	RunID      string
	Test       TestInfo
	StartTime  time.Time
	Concurrent bool
}

type TestCompletedEvent struct {
	RunID       string
	Test        TestInfo
	Outcome     Outcome
	Message     string
	UserMessage string

	// Errors are the assertion failures behind a Failed outcome. They are usually
	// testctx.ErrorWithStacktrace values.
	Errors []error

	// Log is the rendered test output. Entries written with LogOnFailure are included only if
	// the outcome is not Passed.
	Log string

	// Fault is set if and only if Outcome is ExceptionThrown.
	Fault error

	StartTime  time.Time
	EndTime    time.Time
	Concurrent bool
}

type TestSkippedEvent struct {
	RunID      string
	Test       TestInfo
	Reason     SkipReason
	Message    string
	Fault      error
	StartTime  time.Time
	Concurrent bool
}

// Listener receives every kind of event. Returning an error from any method is treated the
// same as a failing handler registered with the On methods.
type Listener interface {
	RunStarted(RunStartedEvent) error
	RunCompleted(RunCompletedEvent) error
	TestStarted(TestStartedEvent) error
	TestCompleted(TestCompletedEvent) error
	TestSkipped(TestSkippedEvent) error
}

// NullListener is a Listener that ignores everything. Embed it to implement only some methods.
type NullListener struct{}

func (NullListener) RunStarted(RunStartedEvent) error       { return nil }
func (NullListener) RunCompleted(RunCompletedEvent) error   { return nil }
func (NullListener) TestStarted(TestStartedEvent) error     { return nil }
func (NullListener) TestCompleted(TestCompletedEvent) error { return nil }
func (NullListener) TestSkipped(TestSkippedEvent) error     { return nil }
