package query

import (
	"fmt"
	"strings"
)

// ParseError reports malformed query text. Offset is the byte position of
// the offending token; Expected lists the token kinds that would have been
// accepted there.
type ParseError struct {
	Message  string
	Offset   int
	Expected []string
}

func (e *ParseError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
	}

	return fmt.Sprintf("parse error at offset %d: %s (expected %s)", e.Offset, e.Message, strings.Join(e.Expected, " or "))
}

// ValidationError reports a well-formed query that is semantically invalid,
// such as an unknown metric name in an optimization objective.
type ValidationError struct {
	Message string
	Span    Span
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at offset %d: %s", e.Span.Start, e.Message)
}
