package engine

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/launchdarkly/test-engine/framework/helpers"
)

// MatchesGroups reports whether a test with the given groups is selected by a group filter.
// An empty filter selects everything. Otherwise a test is selected if one of its groups is
// exactly equal to a filter entry, so a test without groups is never selected.
func MatchesGroups(groups, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	return helpers.AnyInSlice(groups, filter)
}

// RegexFilters select tests by name. A test runs if it matches at least one MustMatch pattern
// (or there are none) and no MustNotMatch pattern.
type RegexFilters struct {
	MustMatch    NamePatternList
	MustNotMatch NamePatternList
}

func (r RegexFilters) Match(info TestInfo) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(info)) &&
		!r.MustNotMatch.AnyMatch(info)
}

func (r RegexFilters) IsDefined() bool {
	return r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined()
}

// NamePattern matches a test by its type name and, optionally, its method name: the pattern
// "Calc/Add.*" is split at the slash, and "Calc" alone matches every method of matching types.
// Each part is an unanchored regular expression.
type NamePattern []*regexp.Regexp

func (p NamePattern) Match(info TestInfo) bool {
	parts := []string{info.TypeName, info.MethodName}
	if len(p) > len(parts) {
		return false
	}
	for i, rx := range p {
		if !rx.MatchString(parts[i]) {
			return false
		}
	}
	return true
}

func (p NamePattern) String() string {
	ss := make([]string, 0, len(p))
	for _, c := range p {
		ss = append(ss, c.String())
	}
	return strings.Join(ss, "/")
}

func ParseNamePattern(s string) (NamePattern, error) {
	parts := strings.Split(s, "/")
	ret := make(NamePattern, 0, len(parts))
	for _, part := range parts {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		ret = append(ret, rx)
	}
	return ret, nil
}

type NamePatternList []NamePattern

func (l NamePatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (l *NamePatternList) Set(value string) error {
	p, err := ParseNamePattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l NamePatternList) IsDefined() bool {
	return len(l) != 0
}

func (l NamePatternList) AnyMatch(info TestInfo) bool {
	for _, p := range l {
		if p.Match(info) {
			return true
		}
	}
	return false
}

// PrintFilterDescription explains to the user which tests a run will leave out.
func PrintFilterDescription(w io.Writer, filters RegexFilters, groups []string) {
	if !filters.IsDefined() && len(groups) == 0 {
		return
	}
	helpers.MustFprintln(w, "Some tests will be skipped based on the filter criteria for this test run:")
	if len(groups) != 0 {
		helpers.MustFprintf(w, "  skip any not in group %s\n", strings.Join(groups, ", "))
	}
	if filters.MustMatch.IsDefined() {
		helpers.MustFprintf(w, "  skip any not matching %s\n", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		helpers.MustFprintf(w, "  skip any matching %s\n", filters.MustNotMatch)
	}
	helpers.MustFprintln(w)
}
