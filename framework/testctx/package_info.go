// Package testctx contains T, the context handed to a test method or a pre/post action that
// declares a *testctx.T parameter. It is similar to Go's testing.T: it implements the
// interfaces used by testify's assert and require packages, collects log output, and lets a
// test stop early either as a failure or as an explicit abort.
package testctx
