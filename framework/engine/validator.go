package engine

import (
	"reflect"

	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/testctx"
)

var testContextType = reflect.TypeOf((*testctx.T)(nil)) //nolint:gochecknoglobals

const (
	msgNotPublic     = "Test method is not exported."
	msgStatic        = "Test method is a static function, not a method."
	msgAbstract      = "Test method is abstract."
	msgGeneric       = "Test method is generic."
	msgActionMarker  = "Test method also carries a Pre or Post action marker."
	msgWrongParams   = "Test method must have no parameters or a single *testctx.T parameter."
	msgReturnsValue  = "Test method must not return a value."
	msgNoMethodValue = "Test method has no signature."
)

// IsValid checks whether a candidate can be run as a test. If not, it returns the reason and a
// fixed message describing the first rule the method breaks.
func IsValid(m *meta.Method) (bool, SkipReason, string) {
	switch {
	case !m.Public:
		return false, MethodNotSupported, msgNotPublic
	case m.Static:
		return false, MethodNotSupported, msgStatic
	case m.Abstract:
		return false, MethodNotSupported, msgAbstract
	case m.Generic:
		return false, MethodNotSupported, msgGeneric
	case m.Markers.IsAction():
		return false, TestActionAttributeDefined, msgActionMarker
	case m.Signature == nil:
		return false, MethodNotSupported, msgNoMethodValue
	}
	if in := m.In(); len(in) > 1 || (len(in) == 1 && in[0] != testContextType) {
		return false, MethodNotSupported, msgWrongParams
	}
	if len(m.Out()) != 0 {
		return false, MethodNotSupported, msgReturnsValue
	}
	return true, 0, ""
}
