package reporting

import (
	"io"
	"time"

	"github.com/launchdarkly/test-engine/framework/engine"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type typeSummary struct {
	name     string
	counts   engine.Counts
	duration time.Duration
}

// summarize groups results by declaring type, in order of first appearance.
func summarize(results Results) []typeSummary {
	var ret []typeSummary
	index := make(map[string]int)
	for _, r := range results.Tests {
		i, ok := index[r.Test.TypeName]
		if !ok {
			i = len(ret)
			index[r.Test.TypeName] = i
			ret = append(ret, typeSummary{name: r.Test.TypeName})
		}
		if r.Skipped {
			ret[i].counts.Skipped++
		} else {
			switch r.Outcome {
			case engine.Passed:
				ret[i].counts.Passed++
			case engine.Failed:
				ret[i].counts.Failed++
			case engine.ExceptionThrown:
				ret[i].counts.Threw++
			case engine.Aborted:
				ret[i].counts.Aborted++
			}
		}
		ret[i].counts.Total++
		ret[i].duration += r.Duration
	}
	return ret
}

func statusString(c engine.Counts) string {
	switch {
	case c.Failed+c.Threw+c.Aborted > 0:
		return "FAIL"
	case c.Skipped > 0:
		return "SKIP"
	default:
		return "PASS"
	}
}

// WriteSummaryTable renders one row per declaring type and a total.
func WriteSummaryTable(w io.Writer, results Results) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Test run " + results.RunID)

	t.AppendHeader(table.Row{
		"Type", "Duration", "Tests", "Passed", "Failed", "Threw", "Aborted", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Threw", Align: text.AlignRight},
		{Name: "Aborted", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	var total engine.Counts
	var totalDuration time.Duration
	for _, s := range summarize(results) {
		t.AppendRow(table.Row{
			s.name,
			formatDuration(s.duration),
			s.counts.Total,
			s.counts.Passed,
			s.counts.Failed,
			s.counts.Threw,
			s.counts.Aborted,
			s.counts.Skipped,
			statusString(s.counts),
		})
		total.Merge(s.counts)
		totalDuration += s.duration
	}

	switch statusString(total) {
	case "FAIL":
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case "SKIP":
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		formatDuration(totalDuration),
		total.Total,
		total.Passed,
		total.Failed,
		total.Threw,
		total.Aborted,
		total.Skipped,
		statusString(total),
	})

	t.Render()
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
