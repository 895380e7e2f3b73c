// Package engine runs test methods described by the meta package.
//
// An Executor takes candidate methods from a Source, validates them, creates one instance of
// each declaring type at a time, runs the type's pre and post actions around every test, and
// reports everything that happens as events. Runs are either sequential or spread over a fixed
// pool of workers, and can be started synchronously with Execute or in the background with
// BeginExecute/EndExecute.
package engine
