package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/test-engine/framework/engine"
	o "github.com/launchdarkly/test-engine/framework/opt"
)

// JUnitReporter records the run and writes it as JUnit XML when EndLog is called. There is one
// test suite per declaring type.
type JUnitReporter struct {
	engine.NullListener
	filePath string
	filters  engine.RegexFilters
	groups   []string
	runID    string
	tests    []jUnitTestStatus // in the order the tests finished
	lock     sync.Mutex
}

type jUnitTestStatus struct {
	info     engine.TestInfo
	outcome  engine.Outcome
	failures []string
	skipped  o.Maybe[string]
	output   string
	duration time.Duration
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Errors     int                `xml:"errors,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
	Error       *jUnitXMLFailure     `xml:"error,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

func NewJUnitReporter(filePath string, filters engine.RegexFilters, groups []string) *JUnitReporter {
	return &JUnitReporter{
		filePath: filePath,
		filters:  filters,
		groups:   groups,
	}
}

func (j *JUnitReporter) RunStarted(e engine.RunStartedEvent) error {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.runID = e.RunID
	j.tests = nil
	return nil
}

func (j *JUnitReporter) TestCompleted(e engine.TestCompletedEvent) error {
	status := jUnitTestStatus{
		info:     e.Test,
		outcome:  e.Outcome,
		output:   e.Log,
		duration: e.EndTime.Sub(e.StartTime),
	}
	for _, err := range e.Errors {
		status.failures = append(status.failures, describeError(err))
	}
	switch e.Outcome {
	case engine.ExceptionThrown:
		status.failures = append(status.failures, e.Message)
	case engine.Aborted:
		status.failures = append(status.failures, "aborted: "+e.UserMessage)
	}
	j.record(status)
	return nil
}

func (j *JUnitReporter) TestSkipped(e engine.TestSkippedEvent) error {
	reason := e.Reason.String()
	if e.Message != "" {
		reason += ": " + e.Message
	}
	j.record(jUnitTestStatus{info: e.Test, skipped: o.Some(reason)})
	return nil
}

func (j *JUnitReporter) record(status jUnitTestStatus) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.tests = append(j.tests, status)
}

// EndLog writes the XML file.
func (j *JUnitReporter) EndLog() error {
	fmt.Printf("Writing JUnit data to %s\n", j.filePath)
	data, err := j.render()
	if err != nil {
		return err
	}
	return os.WriteFile(j.filePath, data, 0644) //nolint:gosec
}

func (j *JUnitReporter) render() ([]byte, error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	var doc jUnitXMLDocument

	properties := []jUnitXMLProperty{
		{
			Name:  "tests.run.id",
			Value: j.runID,
		},
		{
			Name:  "tests.filter.groups",
			Value: strings.Join(j.groups, ","),
		},
		{
			Name:  "tests.filter.mustMatch",
			Value: j.filters.MustMatch.String(),
		},
		{
			Name:  "tests.filter.mustNotMatch",
			Value: j.filters.MustNotMatch.String(),
		},
	}

	for _, typeName := range j.typeNames() {
		suite := jUnitXMLTestSuite{
			Name:       typeName,
			Properties: properties,
		}
		suiteTotalDuration := time.Duration(0)
		for _, status := range j.tests {
			if status.info.TypeName != typeName {
				continue
			}

			suite.Tests++
			suiteTotalDuration += status.duration

			testCase := jUnitXMLTestCase{
				Classname: strings.TrimSuffix(status.info.FullName, "."+status.info.MethodName),
				Name:      status.info.MethodName,
				Time:      jUnitDurationString(status.duration),
			}
			switch {
			case status.skipped.IsDefined():
				suite.Skipped++
				testCase.SkipMessage = &jUnitXMLSkipMessage{Message: status.skipped.Value()}
			case status.outcome == engine.ExceptionThrown:
				suite.Errors++
				testCase.Error = &jUnitXMLFailure{
					Message:  strings.Join(status.failures, "\n"),
					Type:     status.outcome.String(),
					Contents: status.output,
				}
			case status.outcome != engine.Passed:
				suite.Failures++
				testCase.Failure = &jUnitXMLFailure{
					Message:  strings.Join(status.failures, "\n"),
					Type:     status.outcome.String(),
					Contents: status.output,
				}
			}

			suite.TestCases = append(suite.TestCases, testCase)
		}
		suite.Time = jUnitDurationString(suiteTotalDuration)
		doc.Suites = append(doc.Suites, suite)
	}

	bytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(bytes, '\n'), nil
}

func (j *JUnitReporter) typeNames() []string {
	var ret []string
	seen := make(map[string]bool)
	for _, status := range j.tests {
		name := status.info.TypeName
		if !seen[name] {
			ret = append(ret, name)
			seen[name] = true
		}
	}
	return ret
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
