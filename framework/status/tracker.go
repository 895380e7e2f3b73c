package status

import (
	"sync"
	"time"

	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/helpers"
)

// Snapshot is the progress of the latest run.
type Snapshot struct {
	RunID      string     `json:"runId,omitempty"`
	Running    bool       `json:"running"`
	Concurrent bool       `json:"concurrent"`
	Cancelled  bool       `json:"cancelled"`
	Total      int        `json:"total"`
	Finished   int        `json:"finished"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Threw      int        `json:"threw"`
	Aborted    int        `json:"aborted"`
	Skipped    int        `json:"skipped"`
	InProgress []string   `json:"inProgress,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
}

// Tracker is a Listener that keeps a Snapshot up to date.
type Tracker struct {
	engine.NullListener
	current    Snapshot
	inProgress map[string]int
	lock       sync.Mutex
}

func NewTracker() *Tracker {
	return &Tracker{inProgress: make(map[string]int)}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.lock.Lock()
	defer t.lock.Unlock()
	ret := t.current
	var names []string
	for name, count := range t.inProgress {
		for i := 0; i < count; i++ {
			names = append(names, name)
		}
	}
	ret.InProgress = helpers.Sorted(names)
	return ret
}

func (t *Tracker) RunStarted(e engine.RunStartedEvent) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	start := e.StartTime
	t.current = Snapshot{
		RunID:      e.RunID,
		Running:    true,
		Concurrent: e.Concurrent,
		Total:      e.Total,
		StartTime:  &start,
	}
	t.inProgress = make(map[string]int)
	return nil
}

func (t *Tracker) RunCompleted(e engine.RunCompletedEvent) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	end := e.EndTime
	t.current.Running = false
	t.current.Cancelled = e.Cancelled
	t.current.EndTime = &end
	return nil
}

func (t *Tracker) TestStarted(e engine.TestStartedEvent) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.inProgress[e.Test.DisplayName]++
	return nil
}

func (t *Tracker) TestCompleted(e engine.TestCompletedEvent) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.inProgress[e.Test.DisplayName] <= 1 {
		delete(t.inProgress, e.Test.DisplayName)
	} else {
		t.inProgress[e.Test.DisplayName]--
	}
	t.current.Finished++
	switch e.Outcome {
	case engine.Passed:
		t.current.Passed++
	case engine.Failed:
		t.current.Failed++
	case engine.ExceptionThrown:
		t.current.Threw++
	case engine.Aborted:
		t.current.Aborted++
	}
	return nil
}

func (t *Tracker) TestSkipped(engine.TestSkippedEvent) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.current.Finished++
	t.current.Skipped++
	return nil
}
