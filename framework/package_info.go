// Package framework contains the shared low-level pieces of the test engine: the Logger
// abstraction used for debug output, and the CapturingLogger that stores per-test output.
//
// The general model is:
//
// 1. Test suites are ordinary Go types whose methods are registered, together with
// markers, in a discovery module (subpackage discovery).
//
// 2. An executor (subpackage engine) validates the candidate methods, creates one instance
// of each suite type at a time, runs declared pre/post actions around each test, and
// reports everything that happens through typed events.
//
// 3. Each invocation receives a test context (subpackage testctx) which is similar to Go's
// testing.T: it collects log output and assertion failures, and it can abort the test.
//
// Listeners such as the console and JUnit reporters (subpackage reporting) and the status
// server (subpackage status) are built on the events only.
package framework
