package engine

import (
	"testing"

	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/stretchr/testify/assert"
)

type Shapes struct{}

func (s *Shapes) NoParams()                           {}
func (s *Shapes) WithContext(t *testctx.T)            {}
func (s *Shapes) WrongParam(n int)                    {}
func (s *Shapes) TwoParams(t *testctx.T, n int)       {}
func (s *Shapes) Variadic(ts ...*testctx.T)           {}
func (s *Shapes) Returns() error                      { return nil }
func (s *Shapes) ReturnsWithContext(*testctx.T) error { return nil }

func TestIsValid(t *testing.T) {
	suite := discovery.SuiteOf[Shapes]()
	copyOf := func(name string, change func(*meta.Method)) *meta.Method {
		m := *mustMethod(t, suite, name)
		change(&m)
		return &m
	}
	unchanged := func(*meta.Method) {}

	type params struct {
		name   string
		method *meta.Method
		reason SkipReason
		msg    string
	}
	invalid := []params{
		{"not public", copyOf("NoParams", func(m *meta.Method) { m.Public = false }), MethodNotSupported, msgNotPublic},
		{"static", copyOf("NoParams", func(m *meta.Method) { m.Static = true }), MethodNotSupported, msgStatic},
		{"abstract", copyOf("NoParams", func(m *meta.Method) { m.Abstract = true }), MethodNotSupported, msgAbstract},
		{"generic", copyOf("NoParams", func(m *meta.Method) { m.Generic = true }), MethodNotSupported, msgGeneric},
		{"pre marker", copyOf("NoParams", func(m *meta.Method) { m.Markers.Pre = true }), TestActionAttributeDefined, msgActionMarker},
		{"post marker", copyOf("WithContext", func(m *meta.Method) { m.Markers.Post = true }), TestActionAttributeDefined, msgActionMarker},
		{"wrong parameter", copyOf("WrongParam", unchanged), MethodNotSupported, msgWrongParams},
		{"two parameters", copyOf("TwoParams", unchanged), MethodNotSupported, msgWrongParams},
		{"variadic", copyOf("Variadic", unchanged), MethodNotSupported, msgWrongParams},
		{"returns value", copyOf("Returns", unchanged), MethodNotSupported, msgReturnsValue},
		{"returns value with context", copyOf("ReturnsWithContext", unchanged), MethodNotSupported, msgReturnsValue},
	}
	for _, p := range invalid {
		t.Run(p.name, func(t *testing.T) {
			ok, reason, msg := IsValid(p.method)
			assert.False(t, ok)
			assert.Equal(t, p.reason, reason)
			assert.Equal(t, p.msg, msg)
		})
	}

	for _, name := range []string{"NoParams", "WithContext"} {
		t.Run("valid "+name, func(t *testing.T) {
			ok, _, msg := IsValid(mustMethod(t, suite, name))
			assert.True(t, ok)
			assert.Equal(t, "", msg)
		})
	}
}

func TestInvalidCandidatesAreReportedAsSkipped(t *testing.T) {
	src := moduleOf(t, discovery.RuleExported, discovery.SuiteOf[Shapes](discovery.Pre("NoParams")))
	e := newTestExecutor(t)
	rec := &eventRecorder{}
	e.Subscribe(rec)

	assert.NoError(t, e.ExecuteSource(src))

	skipped := make(map[string]TestSkippedEvent)
	for _, s := range eventsOf[TestSkippedEvent](rec) {
		skipped[s.Test.MethodName] = s
		assert.Nil(t, s.Fault)
	}
	assert.Len(t, skipped, 6)
	assert.Equal(t, TestActionAttributeDefined, skipped["NoParams"].Reason)
	assert.Equal(t, MethodNotSupported, skipped["Returns"].Reason)
	assert.Equal(t, msgWrongParams, skipped["WrongParam"].Message)

	started := eventsOf[TestStartedEvent](rec)
	if assert.Len(t, started, 1) {
		assert.Equal(t, "Shapes.WithContext", started[0].Test.DisplayName)
	}
	completed := eventsOf[RunCompletedEvent](rec)
	if assert.Len(t, completed, 1) {
		assert.Equal(t, Counts{Total: 7, Passed: 1, Skipped: 6}, completed[0].Counts)
	}
}
