package testctx

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/launchdarkly/test-engine/framework"
	"github.com/launchdarkly/test-engine/framework/opt"
)

// T is the context of one test invocation: the test method itself plus the pre/post actions
// that run around it all share the same T.
//
// FailNow and Abort stop the calling goroutine by panicking, so like testing.T they must only
// be called from the goroutine running the test or action.
type T struct {
	output       framework.CapturingLogger
	errors       []error
	abortMessage opt.Maybe[string]
	helperFns    []string
	lock         sync.Mutex
}

// abortSignal is the panic value used by Abort.
type abortSignal struct {
	t       *T
	message string
}

// Invocation is the classified result of one call made through Capture.
type Invocation struct {
	// Errors are the assertion failures recorded during this call only.
	Errors []error

	// Aborted is true if the call ended with Abort; UserMessage is the message given to it.
	Aborted     bool
	UserMessage string

	// Panic is the value of an unexpected panic, in which case Stack is the stack at the
	// point of the panic.
	Panic any
	Stack []byte
}

// Panicked returns true if the call ended with a panic that was neither FailNow nor Abort.
func (i Invocation) Panicked() bool { return i.Panic != nil }

// Failed returns true if the call recorded at least one assertion failure.
func (i Invocation) Failed() bool { return len(i.Errors) > 0 }

// Passed returns true if the call completed without failure, abort or panic.
func (i Invocation) Passed() bool { return !i.Failed() && !i.Aborted && !i.Panicked() }

// New creates an empty context.
func New() *T {
	return &T{}
}

// Capture runs fn and classifies how it ended. It is how the engine invokes tests and actions.
func (t *T) Capture(fn func()) (result Invocation) {
	t.lock.Lock()
	start := len(t.errors)
	t.lock.Unlock()

	defer func() {
		r := recover()
		switch sig := r.(type) {
		case nil:
		case *T:
			if sig == t {
				t.lock.Lock()
				if len(t.errors) == start {
					t.errors = append(t.errors, errors.New("test failed with no failure message"))
				}
				t.lock.Unlock()
			} else {
				result.Panic, result.Stack = r, debug.Stack()
			}
		case abortSignal:
			if sig.t == t {
				result.Aborted = true
				result.UserMessage = sig.message
			} else {
				result.Panic, result.Stack = r, debug.Stack()
			}
		default:
			result.Panic, result.Stack = r, debug.Stack()
		}
		t.lock.Lock()
		result.Errors = append([]error(nil), t.errors[start:]...)
		t.lock.Unlock()
	}()

	fn()
	return result
}

// Log appends text to the test output. No line separator is added.
func (t *T) Log(args ...interface{}) {
	t.output.Write(fmt.Sprint(args...), false)
}

// Logf is the formatting variant of Log.
func (t *T) Logf(format string, args ...interface{}) {
	t.output.Write(fmt.Sprintf(format, args...), false)
}

// LogLine is like Log but appends a line separator.
func (t *T) LogLine(args ...interface{}) {
	t.output.Write(fmt.Sprint(args...)+"\n", false)
}

// LogOnFailure appends text that only appears in the final output if the test does not pass
// (that is, if it fails, throws, or is aborted).
func (t *T) LogOnFailure(args ...interface{}) {
	t.output.Write(fmt.Sprint(args...), true)
}

// LogLineOnFailure is like LogOnFailure but appends a line separator.
func (t *T) LogLineOnFailure(args ...interface{}) {
	t.output.Write(fmt.Sprint(args...)+"\n", true)
}

// Output returns everything logged so far.
func (t *T) Output() framework.CapturedOutput {
	return t.output.Output()
}

// RenderLog concatenates the logged text in order, leaving out LogOnFailure entries unless
// includeSuppressed is true.
func (t *T) RenderLog(includeSuppressed bool) string {
	return t.output.Output().Render(includeSuppressed)
}

// Errorf reports an assertion failure. It is equivalent to Go's testing.T.Errorf. It does not
// stop the test, but the current invocation will be reported as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the
// assert.TestingT interface, allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	t.lock.Lock()
	helperFns := append([]string(nil), t.helperFns...)
	t.lock.Unlock()

	err := transformError(fmt.Errorf(format, args...), getStacktrace(false, helperFns))

	t.lock.Lock()
	t.errors = append(t.errors, err)
	t.lock.Unlock()
}

// FailNow causes the current invocation to terminate immediately and be marked as failed.
func (t *T) FailNow() {
	panic(t)
}

// Fail records message as an assertion failure and terminates the invocation.
func (t *T) Fail(message string) {
	t.Errorf("%s", message)
	t.FailNow()
}

// Failed returns true if any assertion failure has been recorded so far.
func (t *T) Failed() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.errors) > 0
}

// Errors returns every assertion failure recorded so far.
func (t *T) Errors() []error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]error(nil), t.errors...)
}

// Abort terminates the invocation immediately. The test is reported as aborted rather than
// failed, with userMessage as the explanation. Post actions do not run after an aborted test.
func (t *T) Abort(userMessage string) {
	t.lock.Lock()
	t.abortMessage = opt.Some(userMessage)
	t.lock.Unlock()
	panic(abortSignal{t: t, message: userMessage})
}

// AbortRequested returns true if Abort has been called.
func (t *T) AbortRequested() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.abortMessage.IsDefined()
}

// AbortMessage returns the message passed to Abort, if any.
func (t *T) AbortMessage() opt.Maybe[string] {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.abortMessage
}

// AssertThat tests value against a matcher and records a failure if it does not match.
func (t *T) AssertThat(value interface{}, matcher m.Matcher) bool {
	t.Helper()
	if pass, desc := matcher.Test(value); !pass {
		t.Errorf("%s", desc)
		return false
	}
	return true
}

// RequireThat is like AssertThat but terminates the invocation on a mismatch.
func (t *T) RequireThat(value interface{}, matcher m.Matcher) {
	t.Helper()
	if !t.AssertThat(value, matcher) {
		t.FailNow()
	}
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.lock.Lock()
	t.helperFns = append(t.helperFns, f.Name())
	t.lock.Unlock()
}
