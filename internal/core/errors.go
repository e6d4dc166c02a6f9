package core

import (
	"fmt"
	"strings"
)

// MalformedInputError reports an upload that cannot be read as an order table:
// required columns are absent or the stream is not tabular at all.
type MalformedInputError struct {
	Missing []string
	Reason  string
	Err     error
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing required column(s) %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
