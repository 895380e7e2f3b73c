package engine

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regexFilterTestParams struct {
	run         []string
	skip        []string
	typeName    string
	methodName  string
	shouldMatch bool
}

func TestRegexFilters(t *testing.T) {
	allParams := []regexFilterTestParams{
		// matches everything by default
		{nil, nil, "A", "b", true},

		// --run with type component only
		{[]string{"A"}, nil, "A", "b", true},
		{[]string{"A"}, nil, "B", "b", false},
		{[]string{"A"}, nil, "xAx", "b", true},
		{[]string{"^A$"}, nil, "xAx", "b", false},

		// --run with type and method
		{[]string{"A/b"}, nil, "A", "b", true},
		{[]string{"A/b"}, nil, "A", "c", false},
		{[]string{"A/b"}, nil, "xAx", "xbx", true},
		{[]string{"A/b/c"}, nil, "A", "b", false},

		// --run with multiple patterns
		{[]string{"A", "B"}, nil, "A", "c", true},
		{[]string{"A", "B"}, nil, "B", "c", true},
		{[]string{"A", "B"}, nil, "C", "c", false},

		// --skip
		{nil, []string{"A"}, "A", "b", false},
		{nil, []string{"A"}, "B", "b", true},
		{nil, []string{"A/b"}, "A", "b", false},
		{nil, []string{"A/b"}, "A", "c", true},
		{nil, []string{"A", "B"}, "C", "A", true},

		// --skip overrides --run
		{[]string{"Y"}, []string{"N"}, "Y", "b", true},
		{[]string{"Y"}, []string{"N"}, "YN", "b", false},
	}
	for _, params := range allParams {
		var r RegexFilters
		for _, s := range params.run {
			require.NoError(t, r.MustMatch.Set(s))
		}
		for _, s := range params.skip {
			require.NoError(t, r.MustNotMatch.Set(s))
		}
		info := TestInfo{TypeName: params.typeName, MethodName: params.methodName}
		t.Run(fmt.Sprintf("run=%s, skip=%s, test=%s.%s", r.MustMatch, r.MustNotMatch,
			params.typeName, params.methodName), func(t *testing.T) {
			assert.Equal(t, params.shouldMatch, r.Match(info))
		})
	}
}

func TestInvalidNamePattern(t *testing.T) {
	var l NamePatternList
	assert.Error(t, l.Set("A/("))
	assert.False(t, l.IsDefined())
}

func TestPrintFilterDescription(t *testing.T) {
	var buf bytes.Buffer
	PrintFilterDescription(&buf, RegexFilters{}, nil)
	assert.Equal(t, "", buf.String())

	var r RegexFilters
	require.NoError(t, r.MustMatch.Set("A/b"))
	require.NoError(t, r.MustNotMatch.Set("C"))
	PrintFilterDescription(&buf, r, []string{"Foo", "Bar"})
	assert.Equal(t, "Some tests will be skipped based on the filter criteria for this test run:\n"+
		"  skip any not in group Foo, Bar\n"+
		`  skip any not matching "A/b"`+"\n"+
		`  skip any matching "C"`+"\n\n", buf.String())
}
