// Package samples contains test suites that run against a small key-value HTTP service. They
// are registered with the default registry, so the command-line runner executes them when no
// other module is linked in.
package samples
