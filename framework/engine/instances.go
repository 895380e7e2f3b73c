package engine

import (
	"fmt"
	"go/token"
	"io"
	"reflect"
	"runtime/debug"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/meta"
)

// Skip describes why a test was not run.
type Skip struct {
	Reason  SkipReason
	Message string
	Fault   error
}

// InstanceSlot holds the single live instance of a declaring type. Consecutive tests of the
// same type share the instance; it is replaced when a test of another type comes along.
//
// A slot is not safe for concurrent use. Each worker has its own.
type InstanceSlot struct {
	typ      *meta.Type
	instance any
	logger   framework.Logger
}

// NewInstanceSlot creates an empty slot. Disposal errors are written to logger.
func NewInstanceSlot(logger framework.Logger) *InstanceSlot {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &InstanceSlot{logger: logger}
}

// Current returns the type and instance held by the slot, if any.
func (s *InstanceSlot) Current() (*meta.Type, any) {
	return s.typ, s.instance
}

// Resolve returns the instance to run the test on. A slot holding an instance of the same type
// returns it unchanged. Otherwise the old instance is disposed and a new one constructed.
//
// If the type cannot be instantiated, the returned Skip says why. An ineligible type leaves
// the slot untouched; a failing constructor leaves it empty.
func (s *InstanceSlot) Resolve(d *TestDescriptor) (any, *Skip) {
	t := d.Type
	if msg, ok := checkTypeEligible(t); !ok {
		return nil, &Skip{Reason: TypeNotSupported, Message: msg}
	}
	if s.typ == t && s.instance != nil {
		return s.instance, nil
	}

	s.Dispose()
	instance, err := construct(t)
	if err != nil {
		return nil, &Skip{
			Reason:  ConstructorThrewException,
			Message: fmt.Sprintf("Constructor of %s failed with %s: %s", t.Name, faultTypeName(err), err),
			Fault:   err,
		}
	}
	s.typ, s.instance = t, instance
	return instance, nil
}

// Dispose closes the current instance, if it is an io.Closer, and empties the slot.
func (s *InstanceSlot) Dispose() {
	typ, instance := s.typ, s.instance
	s.typ, s.instance = nil, nil
	if instance == nil {
		return
	}
	closer, ok := instance.(io.Closer)
	if !ok {
		return
	}
	if err := closeRecovered(closer); err != nil {
		s.logger.Printf("Error disposing instance of %s: %s", typ, err)
	}
}

func closeRecovered(c io.Closer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return c.Close()
}

func construct(t *meta.Type) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	instance, err = t.New()
	if err == nil && instance == nil {
		err = fmt.Errorf("constructor of %s returned no instance", t.Name)
	}
	return instance, err
}

func checkTypeEligible(t *meta.Type) (string, bool) {
	switch {
	case t == nil || t.Reflect == nil:
		return "Declaring type is unknown.", false
	case t.Abstract || t.Reflect.Kind() == reflect.Interface:
		return fmt.Sprintf("Declaring type %s is an interface or abstract type.", t.Name), false
	case t.Reflect.Kind() != reflect.Struct:
		return fmt.Sprintf("Declaring type %s is not a struct type.", t.Name), false
	case t.Generic:
		return fmt.Sprintf("Declaring type %s is a generic type definition.", t.Name), false
	case !token.IsExported(t.Name):
		return fmt.Sprintf("Declaring type %s is not exported.", t.Name), false
	case t.New == nil:
		return fmt.Sprintf("Declaring type %s has no parameterless constructor.", t.Name), false
	}
	return "", true
}
