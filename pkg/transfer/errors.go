package transfer

import (
	"fmt"
)

// Failure is one item that could not be processed.
type Failure struct {
	Key string
	Err error
}

// BatchError reports the items that failed in a multi-object operation.
type BatchError struct {
	Op       string
	Total    int
	Failures []Failure
}

func (e *BatchError) Error() string {
	first := e.Failures[0]
	if len(e.Failures) == 1 {
		return fmt.Sprintf("%s: %s: %v", e.Op, first.Key, first.Err)
	}
	return fmt.Sprintf("%s: %d of %d failed (first: %s: %v)", e.Op, len(e.Failures), e.Total, first.Key, first.Err)
}

// Unwrap exposes every failure cause to errors.Is/As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ExistsError is returned under OnExistsFail when a target exists.
type ExistsError struct {
	Target string
}

func (e *ExistsError) Error() string {
	return "target exists: " + e.Target
}

// SizeMismatchError is returned by the get+put copy fallback when the
// fetched body does not match the size the listing reported, which means
// the source changed after it was listed.
type SizeMismatchError struct {
	Key      string
	Expected int64
	Got      int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("source size mismatch for %s: expected=%d got=%d", e.Key, e.Expected, e.Got)
}
