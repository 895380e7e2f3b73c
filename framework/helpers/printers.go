package helpers

import (
	"fmt"
	"io"
)

// MustFprintln is fmt.Fprintln that panics if the write fails.
func MustFprintln(w io.Writer, a ...any) {
	if _, err := fmt.Fprintln(w, a...); err != nil {
		panic(err)
	}
}

// MustFprintf is fmt.Fprintf that panics if the write fails.
func MustFprintf(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err)
	}
}
