package hdql

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperdim/hdql/executor"
	"github.com/hyperdim/hdql/planner"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/store"
)

var (
	// ErrRateLimited is returned when the admission limiter rejects a query.
	ErrRateLimited = errors.New("query rate limit exceeded")
)

// IsParseError reports whether err is a syntax error from the parser.
func IsParseError(err error) bool {
	var pe *query.ParseError
	return errors.As(err, &pe)
}

// IsValidationError reports whether err is a semantic validation failure.
func IsValidationError(err error) bool {
	var ve *query.ValidationError
	return errors.As(err, &ve)
}

// IsPlanningFailed reports whether err means no execution plan could
// satisfy the query under the configured constraints.
func IsPlanningFailed(err error) bool {
	var pf *planner.ErrPlanningFailed
	return errors.As(err, &pf)
}

// IsNotFound reports whether err means a referenced entity does not exist
// in the store.
func IsNotFound(err error) bool {
	var nf *store.ErrNotFound
	return errors.As(err, &nf)
}

// IsTimeout reports whether err means execution exceeded its deadline.
func IsTimeout(err error) bool {
	var ee *executor.ExecutionError
	return errors.As(err, &ee) && ee.Kind == executor.KindTimeout
}

// IsCancelled reports whether err means execution was cancelled by the
// caller.
func IsCancelled(err error) bool {
	var ee *executor.ExecutionError
	return errors.As(err, &ee) && ee.Kind == executor.KindCancelled
}

// translateError normalizes errors crossing the facade boundary. Structured
// errors from the subpackages pass through unchanged; bare context errors
// are wrapped so callers always see an execution error kind.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ee *executor.ExecutionError
	if errors.As(err, &ee) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &executor.ExecutionError{Kind: executor.KindTimeout, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &executor.ExecutionError{Kind: executor.KindCancelled, Cause: err}
	}

	var pe *query.ParseError
	var ve *query.ValidationError
	var pf *planner.ErrPlanningFailed
	var nf *store.ErrNotFound
	if errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &pf) || errors.As(err, &nf) {
		return err
	}

	return fmt.Errorf("query failed: %w", err)
}
