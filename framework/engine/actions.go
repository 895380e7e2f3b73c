package engine

import (
	"reflect"
	"strings"

	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/testctx"

	"golang.org/x/exp/slices"
)

// ActionPipeline is the ordered pre and post actions of one declaring type.
type ActionPipeline struct {
	Pre  []ActionDescriptor
	Post []ActionDescriptor
}

// PipelineFor collects the actions of a type. Each phase is sorted by order; actions with the
// same order keep their registration order.
func PipelineFor(t *meta.Type) *ActionPipeline {
	p := &ActionPipeline{}
	if t == nil {
		return p
	}
	for _, m := range t.Methods {
		if m.Markers.Pre {
			p.Pre = append(p.Pre, newAction(m, Pre))
		}
		if m.Markers.Post {
			p.Post = append(p.Post, newAction(m, Post))
		}
	}
	byOrder := func(a, b ActionDescriptor) int { return int(a.Order) - int(b.Order) }
	slices.SortStableFunc(p.Pre, byOrder)
	slices.SortStableFunc(p.Post, byOrder)
	return p
}

func newAction(m *meta.Method, kind ActionKind) ActionDescriptor {
	return ActionDescriptor{
		Method:         m,
		Kind:           kind,
		Order:          m.Markers.ActionOrder(),
		AcceptsContext: acceptsContext(m),
	}
}

// InvocationResult is the outcome of a test together with its actions.
type InvocationResult struct {
	Outcome Outcome

	// Message holds the assertion failures, or the fault, that decided the outcome.
	Message string

	// UserMessage is the message given to Abort.
	UserMessage string

	// Errors are the assertion failures of the action or body that decided a Failed outcome.
	Errors []error

	// Fault is set if and only if Outcome is ExceptionThrown.
	Fault error
}

// RunAround runs the pre actions, then body, then the post actions, all with the same
// context.
//
// A failing, aborting or panicking pre action ends the invocation right away. The post actions
// run after the body unless it aborted, and a post action that does not pass replaces the
// outcome. A panic or abort stops the rest of its phase.
func (p *ActionPipeline) RunAround(instance any, t *testctx.T, body func()) InvocationResult {
	tv := reflect.ValueOf(t)
	runAction := func(a ActionDescriptor) testctx.Invocation {
		return t.Capture(func() {
			a.Method.Invoke(instance, contextArgs(a.AcceptsContext, tv)...)
		})
	}

	for _, a := range p.Pre {
		if inv := runAction(a); !inv.Passed() {
			return resultOf(inv)
		}
	}

	bodyInv := t.Capture(body)
	result := resultOf(bodyInv)
	if bodyInv.Aborted {
		return result
	}

	for _, a := range p.Post {
		inv := runAction(a)
		if inv.Passed() {
			continue
		}
		result = resultOf(inv)
		if inv.Aborted || inv.Panicked() {
			break
		}
	}
	return result
}

func resultOf(inv testctx.Invocation) InvocationResult {
	switch {
	case inv.Panicked():
		fault := &PanicError{Value: inv.Panic, Stack: inv.Stack}
		return InvocationResult{Outcome: ExceptionThrown, Message: fault.Error(), Fault: fault}
	case inv.Aborted:
		return InvocationResult{Outcome: Aborted, UserMessage: inv.UserMessage}
	case inv.Failed():
		msgs := make([]string, 0, len(inv.Errors))
		for _, err := range inv.Errors {
			msgs = append(msgs, err.Error())
		}
		return InvocationResult{Outcome: Failed, Message: strings.Join(msgs, "\n"), Errors: inv.Errors}
	default:
		return InvocationResult{Outcome: Passed}
	}
}
