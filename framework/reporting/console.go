package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/helpers"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/fatih/color"
)

var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals
var allTestsPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// ConsoleReporter prints one block per test as the run goes.
type ConsoleReporter struct {
	engine.NullListener

	// Out defaults to os.Stdout.
	Out io.Writer

	// DebugOutputOnFailure and DebugOutputOnSuccess control whether the test log is printed.
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	lock sync.Mutex
}

func (c *ConsoleReporter) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *ConsoleReporter) RunStarted(e engine.RunStartedEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	mode := helpers.IfElse(e.Concurrent, "concurrently", "sequentially")
	_, err := fmt.Fprintf(c.out(), "Running %d tests %s (run %s)\n", e.Total, mode, e.RunID)
	return err
}

func (c *ConsoleReporter) TestStarted(e engine.TestStartedEvent) error {
	if e.Concurrent {
		// concurrent output would interleave, so everything is printed on completion
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := fmt.Fprintf(c.out(), "[%s]\n", e.Test)
	return err
}

func (c *ConsoleReporter) TestCompleted(e engine.TestCompletedEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	w := c.out()
	if e.Concurrent {
		if _, err := fmt.Fprintf(w, "[%s]\n", e.Test); err != nil {
			return err
		}
	}

	failed := e.Outcome != engine.Passed
	for _, err := range e.Errors {
		for _, line := range strings.Split(describeError(err), "\n") {
			_, _ = consoleTestErrorColor.Fprintf(w, "  %s\n", line)
		}
	}
	switch e.Outcome {
	case engine.Failed:
		_, _ = consoleTestFailedColor.Fprintf(w, "  FAILED: %s\n", e.Test)
	case engine.ExceptionThrown:
		_, _ = consoleTestFailedColor.Fprintf(w, "  EXCEPTION: %s: %s\n", e.Test, e.Message)
	case engine.Aborted:
		_, _ = consoleTestFailedColor.Fprintf(w, "  ABORTED: %s (%s)\n", e.Test, e.UserMessage)
	}
	if e.Log != "" &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		for _, line := range strings.Split(strings.TrimSuffix(e.Log, "\n"), "\n") {
			_, _ = consoleDebugOutputColor.Fprintf(w, "    DEBUG %s\n", line)
		}
	}
	return nil
}

func (c *ConsoleReporter) TestSkipped(e engine.TestSkippedEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if e.Message == "" {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s (%s)\n", e.Test, e.Reason)
	} else {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s (%s: %s)\n", e.Test, e.Reason, e.Message)
	}
	return nil
}

// describeError adds the stacktrace of an assertion failure.
func describeError(err error) string {
	message := err.Error()
	if es, ok := err.(testctx.ErrorWithStacktrace); ok {
		message += "\n  Stacktrace:"
		for _, s := range es.Stacktrace {
			message += "\n    " + s.String()
		}
	}
	return message
}

// PrintResults writes the final verdict: a passing message to stdout, or the list of failed
// tests to stderr.
func PrintResults(results Results) {
	FprintResults(os.Stdout, os.Stderr, results)
}

func FprintResults(stdout, stderr io.Writer, results Results) {
	switch {
	case results.OK():
		_, _ = allTestsPassedColor.Fprintln(stdout, "All tests passed")
	case !results.Completed:
		_, _ = consoleTestFailedColor.Fprintln(stderr, "The test run did not complete")
	default:
		_, _ = consoleTestFailedColor.Fprintf(stderr, "FAILED TESTS (%d):\n", len(results.Failures))
		for _, f := range results.Failures {
			_, _ = consoleTestFailedColor.Fprintf(stderr, "  * %s (%s)\n", f.Test, f.Outcome)
		}
	}
}
