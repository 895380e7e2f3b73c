package testctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/test-engine/framework/testctx/internal"
)

func TestStacktrace(t *testing.T) {
	t.Run("without filtering", func(t *testing.T) {
		var stack []StacktraceInfo
		New().Capture(func() {
			stack = getStacktrace(true, nil)
		})
		require.NotEmpty(t, stack)
		assert.Equal(t, currentPackageName(), stack[0].Package)
		assert.Contains(t, stack[0].Function, "TestStacktrace.")
	})

	t.Run("auto-filtering removes testctx frames", func(t *testing.T) {
		var stack []StacktraceInfo
		New().Capture(func() {
			internal.RunAction(func() {
				stack = getStacktrace(false, nil)
			})
		})
		require.Len(t, stack, 1)
		// Only internal.RunAction survives: this test is in testctx, and Capture is the root.
		assert.Equal(t, currentPackageName()+"/internal", stack[0].Package)
		assert.Equal(t, "RunAction", stack[0].Function)
	})

	t.Run("filter out designated helpers", func(t *testing.T) {
		New().Capture(func() {
			helperFunc1(func() {
				helperFunc2(func() {
					stack := getStacktrace(true, []string{currentPackageName() + ".helperFunc2"})
					foundFunc1 := false
					for _, s := range stack {
						if s.Package == currentPackageName() && s.Function == "helperFunc1" {
							foundFunc1 = true
						} else if s.Package == currentPackageName() && s.Function == "helperFunc2" {
							assert.Fail(t, "helperFunc2 should not have been in stacktrace", "stacktrace: %+v", stack)
						}
					}
					assert.True(t, foundFunc1, "helperFunc1 should have been in stacktrace but wasn't")
				})
			})
		})
	})
}

func TestTransformErrorStripsTestifyTrace(t *testing.T) {
	err := errors.New("\n\tError Trace:\tfoo_test.go:12\n\tError:      \tNot equal: 1 != 2\n")
	out := transformError(err, nil)
	assert.Equal(t, "Not equal: 1 != 2", out.Error())

	withStack := transformError(errors.New("plain"), []StacktraceInfo{{FileName: "a.go", Package: "x", Function: "F", Line: 3}})
	var ews ErrorWithStacktrace
	require.True(t, errors.As(withStack, &ews))
	assert.Equal(t, "plain", ews.Message)
	assert.Equal(t, "x.F (a.go:3)", ews.Stacktrace[0].String())
}

func TestParsePackageAndFunctionName(t *testing.T) {
	p, f := parsePackageAndFunctionName("github.com/a/b/c.(*T).Capture.func1")
	assert.Equal(t, "github.com/a/b/c", p)
	assert.Equal(t, "(*T).Capture.func1", f)
}

func helperFunc1(action func()) {
	action()
}

func helperFunc2(action func()) {
	action()
}
