package engine

import (
	"fmt"
	"reflect"

	"github.com/launchdarkly/test-engine/framework/helpers"
	"github.com/launchdarkly/test-engine/framework/meta"
)

// Outcome is how a test invocation ended.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	ExceptionThrown
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case ExceptionThrown:
		return "ExceptionThrown"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// SkipReason is why a candidate was never run.
type SkipReason int

const (
	MethodNotSupported SkipReason = iota
	TypeNotSupported
	TestActionAttributeDefined
	ConstructorThrewException
	SkipMarkerDefined
)

func (r SkipReason) String() string {
	switch r {
	case MethodNotSupported:
		return "MethodNotSupported"
	case TypeNotSupported:
		return "TypeNotSupported"
	case TestActionAttributeDefined:
		return "TestActionAttributeDefined"
	case ConstructorThrewException:
		return "ConstructorThrewException"
	case SkipMarkerDefined:
		return "SkipMarkerDefined"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(r))
	}
}

// TestInfo identifies a test in events. It is a copy, so listeners may keep it.
type TestInfo struct {
	DisplayName string
	FullName    string
	TypeName    string
	MethodName  string
	Description string
	Groups      []string
}

func (i TestInfo) String() string { return i.DisplayName }

func infoOf(m *meta.Method) TestInfo {
	info := TestInfo{
		DisplayName: m.DisplayName(),
		FullName:    m.FullName(),
		MethodName:  m.Name,
		Description: m.Markers.Description,
		Groups:      helpers.CopyOf(m.Markers.Groups),
	}
	if m.Type != nil {
		info.TypeName = m.Type.Name
	}
	return info
}

// TestDescriptor is a validated test method.
type TestDescriptor struct {
	Method         *meta.Method
	Type           *meta.Type
	Info           TestInfo
	AcceptsContext bool
}

func newTestDescriptor(m *meta.Method) *TestDescriptor {
	return &TestDescriptor{
		Method:         m,
		Type:           m.Type,
		Info:           infoOf(m),
		AcceptsContext: acceptsContext(m),
	}
}

// ActionKind is the phase an action runs in.
type ActionKind int

const (
	Pre ActionKind = iota
	Post
)

func (k ActionKind) String() string {
	if k == Pre {
		return "Pre"
	}
	return "Post"
}

// ActionDescriptor is a pre or post action of a declaring type.
type ActionDescriptor struct {
	Method         *meta.Method
	Kind           ActionKind
	Order          uint8
	AcceptsContext bool
}

func acceptsContext(m *meta.Method) bool {
	in := m.In()
	return len(in) == 1 && in[0] == testContextType
}

func contextArgs(accepts bool, t reflect.Value) []reflect.Value {
	if accepts {
		return []reflect.Value{t}
	}
	return nil
}
