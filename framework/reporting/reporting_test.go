package reporting

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Widgets struct{}

func (w *Widgets) Assembles(t *testctx.T) {
	t.LogLine("assembling")
}

func (w *Widgets) Breaks(t *testctx.T) {
	t.LogLine("about to break")
	t.Errorf("widget broke")
}

func (w *Widgets) Explodes() { panic("kaboom") }

func (w *Widgets) GivesUp(t *testctx.T) { t.Abort("no parts") }

func (w *Widgets) Later() {}

type Gadgets struct{}

func (g *Gadgets) Works() {}

func runSuites(t *testing.T, listeners ...engine.Listener) {
	module := discovery.NewModule(t.Name(), discovery.RuleMarked)
	require.NoError(t, module.Add(
		discovery.SuiteOf[Widgets](
			discovery.Test("Assembles"),
			discovery.Test("Breaks"),
			discovery.Test("Explodes"),
			discovery.Test("GivesUp"),
			discovery.Test("Later", discovery.SkipWith("not yet")),
		),
		discovery.SuiteOf[Gadgets](discovery.Test("Works")),
	))
	e, err := engine.NewExecutor(context.Background())
	require.NoError(t, err)
	for _, l := range listeners {
		e.Subscribe(l)
	}
	require.NoError(t, e.ExecuteSource(discovery.ModuleSet{module}))
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	runSuites(t, c)
	results := c.Results()

	assert.True(t, results.Completed)
	assert.False(t, results.OK())
	assert.NotEmpty(t, results.RunID)
	assert.Len(t, results.Tests, 6)
	assert.Equal(t, engine.Counts{Total: 6, Passed: 2, Failed: 1, Threw: 1, Aborted: 1, Skipped: 1}, results.Counts)

	var failed []string
	for _, f := range results.Failures {
		failed = append(failed, f.Test.DisplayName)
	}
	assert.Equal(t, []string{"Widgets.Breaks", "Widgets.Explodes", "Widgets.GivesUp"}, failed)
}

func TestResultsOK(t *testing.T) {
	assert.False(t, Results{}.OK())
	assert.True(t, Results{Completed: true}.OK())
	assert.False(t, Results{Completed: true, Failures: []TestResult{{}}}.OK())
}

func TestConsoleReporter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	runSuites(t, &ConsoleReporter{Out: &buf, DebugOutputOnFailure: true})
	out := buf.String()

	assert.Contains(t, out, "Running 6 tests sequentially")
	assert.Contains(t, out, "[Widgets.Assembles]\n")
	assert.NotContains(t, out, "DEBUG assembling")
	assert.Contains(t, out, "  widget broke\n")
	assert.Contains(t, out, "  FAILED: Widgets.Breaks\n")
	assert.Contains(t, out, "    DEBUG about to break\n")
	assert.Contains(t, out, "  EXCEPTION: Widgets.Explodes: panic: kaboom\n")
	assert.Contains(t, out, "  ABORTED: Widgets.GivesUp (no parts)\n")
	assert.Contains(t, out, "  SKIPPED: Widgets.Later (SkipMarkerDefined: not yet)\n")
}

func TestConsoleReporterDebugOnSuccess(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	runSuites(t, &ConsoleReporter{Out: &buf, DebugOutputOnSuccess: true})
	assert.Contains(t, buf.String(), "    DEBUG assembling\n")
	assert.NotContains(t, buf.String(), "DEBUG about to break")
}

func TestFprintResults(t *testing.T) {
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	FprintResults(&stdout, &stderr, Results{Completed: true})
	assert.Equal(t, "All tests passed\n", stdout.String())
	assert.Equal(t, "", stderr.String())

	stdout.Reset()
	failure := TestResult{Test: engine.TestInfo{DisplayName: "A.b"}, Outcome: engine.Failed}
	FprintResults(&stdout, &stderr, Results{Completed: true, Failures: []TestResult{failure}})
	assert.Equal(t, "", stdout.String())
	assert.Equal(t, "FAILED TESTS (1):\n  * A.b (Failed)\n", stderr.String())
}

func TestJUnitReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	var filters engine.RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("Nothing"))
	j := NewJUnitReporter(path, filters, []string{"g1"})
	runSuites(t, j)
	require.NoError(t, j.EndLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc jUnitXMLDocument
	require.NoError(t, xml.Unmarshal(data, &doc))

	require.Len(t, doc.Suites, 2)
	gadgets, widgets := doc.Suites[0], doc.Suites[1]
	assert.Equal(t, "Gadgets", gadgets.Name)
	assert.Equal(t, 1, gadgets.Tests)
	assert.Equal(t, 0, gadgets.Failures)

	assert.Equal(t, "Widgets", widgets.Name)
	assert.Equal(t, 5, widgets.Tests)
	assert.Equal(t, 2, widgets.Failures)
	assert.Equal(t, 1, widgets.Errors)
	assert.Equal(t, 1, widgets.Skipped)

	cases := make(map[string]jUnitXMLTestCase)
	for _, c := range widgets.TestCases {
		cases[c.Name] = c
		assert.Equal(t, "github.com/launchdarkly/test-engine/framework/reporting.Widgets", c.Classname)
	}
	require.NotNil(t, cases["Breaks"].Failure)
	assert.Contains(t, cases["Breaks"].Failure.Message, "widget broke")
	assert.Equal(t, "about to break\n", cases["Breaks"].Failure.Contents)
	require.NotNil(t, cases["Explodes"].Error)
	assert.Equal(t, "panic: kaboom", cases["Explodes"].Error.Message)
	require.NotNil(t, cases["GivesUp"].Failure)
	assert.Equal(t, "aborted: no parts", cases["GivesUp"].Failure.Message)
	require.NotNil(t, cases["Later"].SkipMessage)
	assert.Equal(t, "SkipMarkerDefined: not yet", cases["Later"].SkipMessage.Message)
	assert.Nil(t, cases["Assembles"].Failure)

	props := make(map[string]string)
	for _, p := range widgets.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "g1", props["tests.filter.groups"])
	assert.Equal(t, `"Nothing"`, props["tests.filter.mustNotMatch"])
	assert.NotEmpty(t, props["tests.run.id"])
}

func TestSummaryTable(t *testing.T) {
	c := NewCollector()
	runSuites(t, c)
	var buf bytes.Buffer
	WriteSummaryTable(&buf, c.Results())
	out := buf.String()

	assert.Contains(t, out, "Widgets")
	assert.Contains(t, out, "Gadgets")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "FAIL")
}

func TestSummarize(t *testing.T) {
	c := NewCollector()
	runSuites(t, c)
	summaries := summarize(c.Results())
	require.Len(t, summaries, 2)
	assert.Equal(t, "Gadgets", summaries[0].name)
	assert.Equal(t, "PASS", statusString(summaries[0].counts))
	assert.Equal(t, engine.Counts{Total: 5, Passed: 1, Failed: 1, Threw: 1, Aborted: 1, Skipped: 1}, summaries[1].counts)
	assert.Equal(t, "FAIL", statusString(summaries[1].counts))
	assert.Equal(t, "SKIP", statusString(engine.Counts{Skipped: 1}))
}
