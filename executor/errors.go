package executor

import "fmt"

// ErrorKind classifies an execution failure.
type ErrorKind uint8

const (
	// KindVectorOpFailed marks a vector operation that could not run, such
	// as a dimension mismatch or an unresolvable relation.
	KindVectorOpFailed ErrorKind = iota
	// KindTimeout marks a query that exceeded its deadline. Partial
	// results are discarded.
	KindTimeout
	// KindCancelled marks a query cancelled by the caller. Partial results
	// are discarded.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindVectorOpFailed:
		return "vector operation failed"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// ExecutionError reports a failure while running a plan. Op names the
// operation output that failed.
type ExecutionError struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("execution failed (%s)", e.Kind)
	if e.Op != "" {
		msg += " at " + e.Op
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
