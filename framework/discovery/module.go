package discovery

import (
	"fmt"
	"sync"

	"github.com/launchdarkly/test-engine/framework/meta"
)

// Rule decides which methods of a module's types are test candidates.
type Rule int

const (
	// RuleMarked takes only methods that carry a Test marker.
	RuleMarked Rule = iota

	// RuleExported takes every exported method and static function, except the Close method
	// used for disposal. Actions and methods of the wrong shape are then rejected, and
	// reported, by the validator.
	RuleExported
)

func (r Rule) String() string {
	switch r {
	case RuleMarked:
		return "marked"
	case RuleExported:
		return "exported"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

// Module is a named, ordered set of suites.
type Module struct {
	name  string
	rule  Rule
	types []*meta.Type
	lock  sync.Mutex
}

// NewModule creates an empty module.
func NewModule(name string, rule Rule) *Module {
	return &Module{name: name, rule: rule}
}

func (m *Module) Name() string { return m.name }
func (m *Module) Rule() Rule   { return m.rule }

// Add registers suites. It stops at the first suite that failed to build.
func (m *Module) Add(suites ...Suite) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, s := range suites {
		if s.err != nil {
			return fmt.Errorf("module %s: %w", m.name, s.err)
		}
		m.types = append(m.types, s.typ)
	}
	return nil
}

// MustAdd is like Add but panics on error. It is meant for init functions.
func (m *Module) MustAdd(suites ...Suite) *Module {
	if err := m.Add(suites...); err != nil {
		panic(err)
	}
	return m
}

// Types returns the registered declaring types in registration order.
func (m *Module) Types() []*meta.Type {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]*meta.Type(nil), m.types...)
}

// Candidates returns the test candidates of the module according to its rule.
func (m *Module) Candidates() []*meta.Method {
	var ret []*meta.Method
	for _, t := range m.Types() {
		for _, method := range t.Methods {
			if m.isCandidate(method) {
				ret = append(ret, method)
			}
		}
	}
	return ret
}

func (m *Module) isCandidate(method *meta.Method) bool {
	switch m.rule {
	case RuleExported:
		return (method.Public || method.Static) && !isDisposeMethod(method)
	default:
		return method.Markers.Test
	}
}

// FindTestDescriptors returns the candidates of all given modules, in module order.
func FindTestDescriptors(modules ...*Module) []*meta.Method {
	var ret []*meta.Method
	for _, m := range modules {
		ret = append(ret, m.Candidates()...)
	}
	return ret
}

// ModuleSet is an explicit set of modules. It can be passed to the engine as a source.
type ModuleSet []*Module

// TestMethods returns FindTestDescriptors for the set.
func (s ModuleSet) TestMethods() []*meta.Method {
	return FindTestDescriptors(s...)
}

// Registry holds the modules that are loaded into the program.
type Registry struct {
	modules []*Module
	lock    sync.Mutex
}

// Register adds a module; registering the same module twice has no effect.
func (r *Registry) Register(m *Module) *Module {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, existing := range r.modules {
		if existing == m {
			return m
		}
	}
	r.modules = append(r.modules, m)
	return m
}

// All returns every registered module.
func (r *Registry) All() ModuleSet {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append(ModuleSet(nil), r.modules...)
}

// Find returns the registered module with the given name.
func (r *Registry) Find(name string) (*Module, bool) {
	for _, m := range r.All() {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

var defaultRegistry Registry //nolint:gochecknoglobals

// Default returns the process-wide registry that test-bearing packages register into from
// their init functions.
func Default() *Registry { return &defaultRegistry }

// Register adds a module to the default registry.
func Register(m *Module) *Module { return defaultRegistry.Register(m) }
