package queryir

import (
	"errors"
	"fmt"
)

// QueryError reports a statement or expression that cannot be built.
//
// QueryErrors are raised while constructing or rendering a statement, before
// anything reaches the database.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Message is a human-readable description.
	Message string

	// Column names the offending column, when there is one.
	Column string
}

// QueryErrorCode categorizes malformed queries.
type QueryErrorCode string

const (
	// ErrCodeInvalidArgument indicates a constructor received the wrong kind
	// of operand (e.g. In over a non-sequence, Exists over a non-select).
	ErrCodeInvalidArgument QueryErrorCode = "INVALID_ARGUMENT"

	// ErrCodeUnknownOrder indicates an order-by direction that is neither
	// asc/desc nor a number.
	ErrCodeUnknownOrder QueryErrorCode = "UNKNOWN_ORDER"

	// ErrCodeUnsupportedOperator indicates an operator object key that is
	// not recognized.
	ErrCodeUnsupportedOperator QueryErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeEmptySet indicates an update with no columns to set.
	ErrCodeEmptySet QueryErrorCode = "EMPTY_SET"

	// ErrCodeMissingTable indicates a statement without a table name.
	ErrCodeMissingTable QueryErrorCode = "MISSING_TABLE"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMalformed reports whether err is (or wraps) a QueryError.
func IsMalformed(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

func invalidArgument(column, format string, args ...any) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		Column:  column,
	}
}
