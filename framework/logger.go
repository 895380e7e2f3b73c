package framework

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger is the debug logging abstraction used throughout the engine. A *log.Logger satisfies it.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

// CapturedMessage is one entry written to a CapturingLogger.
type CapturedMessage struct {
	Time    time.Time
	Message string

	// SuppressUnlessFailed marks output that should only be shown for a test that did not pass.
	SuppressUnlessFailed bool
}

type CapturedOutput []CapturedMessage

// CapturingLogger records output in the order it was written. It backs the log buffer of a
// test context; it is safe for concurrent use, since a test may log from goroutines it starts.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	l.Write(fmt.Sprintln(args...), false)
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.Write(fmt.Sprintf(message, args...), false)
}

// Write appends text exactly as given. No separator is added.
func (l *CapturingLogger) Write(text string, suppressUnlessFailed bool) {
	m := CapturedMessage{Time: time.Now(), Message: text, SuppressUnlessFailed: suppressUnlessFailed}
	l.lock.Lock()
	l.output = append(l.output, m)
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

// Render concatenates the captured text in order. Suppressed entries are only included if
// includeSuppressed is true.
func (output CapturedOutput) Render(includeSuppressed bool) string {
	var b strings.Builder
	for _, m := range output {
		if m.SuppressUnlessFailed && !includeSuppressed {
			continue
		}
		b.WriteString(m.Message)
	}
	return b.String()
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}
