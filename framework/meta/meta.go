// Package meta describes test-bearing types and their methods independently of how they were
// found. The discovery package builds these records from registered Go types; tests and other
// tools can also build them directly.
package meta

import (
	"fmt"
	"reflect"

	"github.com/launchdarkly/test-engine/framework/helpers"
	"github.com/launchdarkly/test-engine/framework/opt"
)

// DefaultActionOrder is the order used for a pre/post action that does not declare one.
const DefaultActionOrder uint8 = 127

// Markers are the tags attached to a method.
type Markers struct {
	// Test marks the method as a test.
	Test bool

	// Pre and Post mark the method as an action that runs before or after each test of its type.
	Pre  bool
	Post bool

	// Order is the position of an action within its phase; lower runs first.
	Order opt.Maybe[uint8]

	Description string

	// Groups are the names the test can be selected by. Order is preserved and duplicates are
	// dropped by AddGroups.
	Groups []string

	// Skip, if defined, causes the test to be reported as skipped with this reason instead of run.
	Skip opt.Maybe[string]
}

// IsAction returns true if the method carries a Pre or Post marker.
func (m Markers) IsAction() bool { return m.Pre || m.Post }

// ActionOrder returns the declared order or DefaultActionOrder.
func (m Markers) ActionOrder() uint8 { return m.Order.OrElse(DefaultActionOrder) }

// AddGroups appends groups that are not already present.
func (m *Markers) AddGroups(groups ...string) {
	for _, g := range groups {
		if !helpers.SliceContains(g, m.Groups) {
			m.Groups = append(m.Groups, g)
		}
	}
}

// Type is a declaring type: the type whose instances the test and action methods run on.
type Type struct {
	// Name is the unqualified type name, FullName is qualified by the package path.
	Name     string
	FullName string

	// Reflect is the underlying type. It is the struct type itself, never a pointer to it.
	Reflect reflect.Type

	// New creates a fresh instance, normally a pointer to a zero value. A nil New means the
	// type has no parameterless constructor.
	New func() (any, error)

	Abstract bool
	Generic  bool

	// Methods are all the methods known for the type, tests and actions alike, in
	// registration order.
	Methods []*Method
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	return t.FullName
}

// Method is a handle to one method (or, for Static methods, a function) of a declaring type.
type Method struct {
	Name string
	Type *Type

	// Func is the callable value. For an instance method the receiver is its first argument.
	// It is invalid for an abstract method.
	Func reflect.Value

	// Signature is the function type without any receiver.
	Signature reflect.Type

	Public   bool
	Static   bool
	Abstract bool
	Generic  bool

	Markers Markers
}

// DisplayName is the short type name and the method name.
func (m *Method) DisplayName() string {
	return m.typeName(false) + "." + m.Name
}

// FullName is the package-qualified type name and the method name.
func (m *Method) FullName() string {
	return m.typeName(true) + "." + m.Name
}

func (m *Method) typeName(full bool) string {
	switch {
	case m.Type == nil:
		return "?"
	case full:
		return m.Type.FullName
	default:
		return m.Type.Name
	}
}

// In returns the parameter types, not counting the receiver.
func (m *Method) In() []reflect.Type {
	if m.Signature == nil {
		return nil
	}
	ret := make([]reflect.Type, 0, m.Signature.NumIn())
	for i := 0; i < m.Signature.NumIn(); i++ {
		ret = append(ret, m.Signature.In(i))
	}
	return ret
}

// Out returns the result types.
func (m *Method) Out() []reflect.Type {
	if m.Signature == nil {
		return nil
	}
	ret := make([]reflect.Type, 0, m.Signature.NumOut())
	for i := 0; i < m.Signature.NumOut(); i++ {
		ret = append(ret, m.Signature.Out(i))
	}
	return ret
}

// Invoke calls the method on instance with the given arguments. For a static method the
// instance is ignored. Panics raised by the method are not recovered here.
func (m *Method) Invoke(instance any, args ...reflect.Value) {
	if !m.Func.IsValid() {
		panic(fmt.Errorf("method %s has no implementation", m.FullName()))
	}
	var in []reflect.Value
	if !m.Static {
		in = append(in, reflect.ValueOf(instance))
	}
	in = append(in, args...)
	m.Func.Call(in)
}

func (m *Method) String() string { return m.FullName() }
