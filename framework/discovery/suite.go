package discovery

import (
	"fmt"
	"go/token"
	"io"
	"reflect"

	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/opt"
)

// Suite is a declaring type together with the markers registered for its methods. Build one
// with SuiteOf.
type Suite struct {
	typ *meta.Type
	err error
}

// Type returns the declaring type, or nil if the suite could not be built.
func (s Suite) Type() *meta.Type { return s.typ }

// Err returns the first registration error, such as a marker for a method that does not exist.
func (s Suite) Err() error { return s.err }

// SuiteOption configures a Suite.
type SuiteOption func(*Suite) error

// MarkerOption sets one marker on a method.
type MarkerOption func(*meta.Markers)

// SuiteOf describes the type T. Its methods are the methods of *T, so both pointer and value
// receivers are found. If T is an interface its methods are abstract and it has no constructor.
//
// The default constructor returns new(T).
func SuiteOf[T any](options ...SuiteOption) Suite {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	typ := &meta.Type{
		Name:     rt.Name(),
		FullName: qualifiedName(rt),
		Reflect:  rt,
		Abstract: rt.Kind() == reflect.Interface,
	}
	if !typ.Abstract {
		typ.New = func() (any, error) { return new(T), nil }
	}
	typ.Methods = reflectMethods(typ)

	s := Suite{typ: typ}
	for _, o := range options {
		if err := o(&s); err != nil {
			s.err = err
			break
		}
	}
	return s
}

func qualifiedName(rt reflect.Type) string {
	if rt.PkgPath() == "" {
		if rt.Name() == "" {
			return rt.String()
		}
		return rt.Name()
	}
	return rt.PkgPath() + "." + rt.Name()
}

func reflectMethods(typ *meta.Type) []*meta.Method {
	rt := typ.Reflect
	var ret []*meta.Method
	if rt.Kind() == reflect.Interface {
		for i := 0; i < rt.NumMethod(); i++ {
			rm := rt.Method(i)
			ret = append(ret, &meta.Method{
				Name:      rm.Name,
				Type:      typ,
				Signature: rm.Type,
				Public:    rm.IsExported(),
				Abstract:  true,
			})
		}
		return ret
	}
	pt := reflect.PointerTo(rt)
	for i := 0; i < pt.NumMethod(); i++ {
		rm := pt.Method(i)
		ret = append(ret, &meta.Method{
			Name:      rm.Name,
			Type:      typ,
			Func:      rm.Func,
			Signature: withoutReceiver(rm.Type),
			Public:    rm.IsExported(),
		})
	}
	return ret
}

func withoutReceiver(ft reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, ft.NumIn())
	for i := 1; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, 0, ft.NumOut())
	for i := 0; i < ft.NumOut(); i++ {
		out = append(out, ft.Out(i))
	}
	return reflect.FuncOf(in, out, ft.IsVariadic())
}

func (s *Suite) method(name string) (*meta.Method, error) {
	for _, m := range s.typ.Methods {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("type %s has no method %q", s.typ.FullName, name)
}

func markMethod(name string, mark func(*meta.Markers), options []MarkerOption) SuiteOption {
	return func(s *Suite) error {
		m, err := s.method(name)
		if err != nil {
			return err
		}
		mark(&m.Markers)
		for _, o := range options {
			o(&m.Markers)
		}
		return nil
	}
}

// Test marks a method as a test.
func Test(name string, options ...MarkerOption) SuiteOption {
	return markMethod(name, func(mk *meta.Markers) { mk.Test = true }, options)
}

// Pre marks a method as an action that runs before every test of the type.
func Pre(name string, options ...MarkerOption) SuiteOption {
	return markMethod(name, func(mk *meta.Markers) { mk.Pre = true }, options)
}

// Post marks a method as an action that runs after every test of the type.
func Post(name string, options ...MarkerOption) SuiteOption {
	return markMethod(name, func(mk *meta.Markers) { mk.Post = true }, options)
}

// StaticFunc adds a plain function as a test candidate of the type. It is reported as a
// static method, which the validator rejects; it exists so such registrations are visible
// rather than silently ignored.
func StaticFunc(name string, fn any, options ...MarkerOption) SuiteOption {
	return func(s *Suite) error {
		fv := reflect.ValueOf(fn)
		if fv.Kind() != reflect.Func {
			return fmt.Errorf("static test %q of %s is not a function", name, s.typ.FullName)
		}
		m := &meta.Method{
			Name:      name,
			Type:      s.typ,
			Func:      fv,
			Signature: fv.Type(),
			Public:    token.IsExported(name),
			Static:    true,
			Markers:   meta.Markers{Test: true},
		}
		for _, o := range options {
			o(&m.Markers)
		}
		s.typ.Methods = append(s.typ.Methods, m)
		return nil
	}
}

// WithConstructor replaces the default constructor of a suite of type T.
func WithConstructor[T any](fn func() (*T, error)) SuiteOption {
	return func(s *Suite) error {
		s.typ.New = func() (any, error) {
			v, err := fn()
			if err != nil {
				return nil, err
			}
			return v, nil
		}
		return nil
	}
}

// WithoutConstructor declares that the type has no parameterless constructor.
func WithoutConstructor() SuiteOption {
	return func(s *Suite) error {
		s.typ.New = nil
		return nil
	}
}

// InGroups adds group markers.
func InGroups(groups ...string) MarkerOption {
	return func(mk *meta.Markers) { mk.AddGroups(groups...) }
}

// Order sets the position of an action in its phase.
func Order(order uint8) MarkerOption {
	return func(mk *meta.Markers) { mk.Order = opt.Some(order) }
}

// Describe sets the description of a test.
func Describe(description string) MarkerOption {
	return func(mk *meta.Markers) { mk.Description = description }
}

// SkipWith causes the test to be reported as skipped with the given reason.
func SkipWith(reason string) MarkerOption {
	return func(mk *meta.Markers) { mk.Skip = opt.Some(reason) }
}

var closerType = reflect.TypeOf((*io.Closer)(nil)).Elem()

// isDisposeMethod is true for the Close method of a type that implements io.Closer; that
// method is how instances are disposed, not a test.
func isDisposeMethod(m *meta.Method) bool {
	return m.Name == "Close" && !m.Static && m.Type != nil && m.Type.Reflect != nil &&
		reflect.PointerTo(m.Type.Reflect).Implements(closerType)
}
