// Package reporting contains engine.Listener implementations that present run results: a
// colored console log, a JUnit XML file, and a summary table.
package reporting
