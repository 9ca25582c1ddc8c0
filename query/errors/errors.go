// Package errors provides the typed error taxonomy shared by the catalog,
// query model, join resolver and compiler.
package errors

import (
	"fmt"
)

// Kind classifies an error by who can fix it
type Kind int

const (
	// KindValidation marks a user-fixable model inconsistency. Recoverable:
	// the model is left unchanged and the session continues.
	KindValidation Kind = iota
	// KindResolution marks a join-graph failure raised before compilation.
	// Same recoverability class as validation errors.
	KindResolution
	// KindInternal marks an internal-invariant violation (validation or
	// resolution was skipped). A programming defect, not a user error.
	KindInternal
	// KindExecution wraps an error from the execution collaborator,
	// surfaced verbatim.
	KindExecution
)

// Error constants for query building
var (
	// ErrUnknownTable is returned when a table is absent from the catalog snapshot
	ErrUnknownTable = &QueryError{kind: KindValidation, code: "unknown_table", msg: "unknown table"}

	// ErrUnknownColumn is returned when a column does not exist on its table
	ErrUnknownColumn = &QueryError{kind: KindValidation, code: "unknown_column", msg: "unknown column"}

	// ErrAliasConflict is returned when a table alias is already taken in the model
	ErrAliasConflict = &QueryError{kind: KindValidation, code: "alias_conflict", msg: "table alias already in use"}

	// ErrUngroupedColumn is returned when an aggregate is present and a
	// selected non-aggregate column is missing from the GROUP BY set
	ErrUngroupedColumn = &QueryError{kind: KindValidation, code: "ungrouped_column", msg: "selected column missing from GROUP BY"}

	// ErrDanglingReference is returned when a column reference points at a
	// table that is not part of the model
	ErrDanglingReference = &QueryError{kind: KindValidation, code: "dangling_reference", msg: "reference to a table not present in the query"}

	// ErrIncompatibleJoin is returned when join condition columns belong to
	// incomparable type families
	ErrIncompatibleJoin = &QueryError{kind: KindValidation, code: "incompatible_join", msg: "join condition columns are not comparable"}

	// ErrTypeMismatch is returned when a filter operator does not apply to
	// the column's declared type
	ErrTypeMismatch = &QueryError{kind: KindValidation, code: "type_mismatch", msg: "operator not applicable to column type"}

	// ErrBadOperatorArity is returned when a filter value count does not
	// match the operator (IN needs at least one, IS NULL takes none)
	ErrBadOperatorArity = &QueryError{kind: KindValidation, code: "bad_operator_arity", msg: "filter value count does not match operator"}

	// ErrBadAggregate is returned when an aggregate function cannot be
	// applied to the column's type
	ErrBadAggregate = &QueryError{kind: KindValidation, code: "bad_aggregate", msg: "aggregate function not applicable to column type"}

	// ErrGroupedAggregate is returned when a GROUP BY key carries an
	// aggregate function
	ErrGroupedAggregate = &QueryError{kind: KindValidation, code: "grouped_aggregate", msg: "GROUP BY key must not be aggregated"}

	// ErrBadOrdinal is returned when an ORDER BY ordinal does not match a
	// SELECT-list position
	ErrBadOrdinal = &QueryError{kind: KindValidation, code: "bad_ordinal", msg: "ORDER BY ordinal outside SELECT list"}

	// ErrBadLimit is returned when a row limit is negative
	ErrBadLimit = &QueryError{kind: KindValidation, code: "bad_limit", msg: "row limit must not be negative"}

	// ErrDisconnectedTables is returned when the selected tables do not form
	// a single connected join graph
	ErrDisconnectedTables = &QueryError{kind: KindResolution, code: "disconnected_tables", msg: "tables not reachable from the root table"}

	// ErrAmbiguousJoin is returned when two explicit joins connect the same
	// table pair with different conditions
	ErrAmbiguousJoin = &QueryError{kind: KindResolution, code: "ambiguous_join", msg: "conflicting joins between the same tables"}

	// ErrInvalidModel is returned when compilation is attempted on a model
	// that has not passed validation and resolution
	ErrInvalidModel = &QueryError{kind: KindInternal, code: "invalid_model", msg: "query model failed internal consistency checks"}

	// ErrExecution wraps errors surfaced by the execution collaborator
	ErrExecution = &QueryError{kind: KindExecution, code: "execution", msg: "query execution failed"}
)

// QueryError represents a query-building error with a machine-checkable code
type QueryError struct {
	kind Kind
	code string
	msg  string
	err  error // wrapped error
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Kind returns the error classification
func (e *QueryError) Kind() Kind {
	return e.kind
}

// Code returns the error code
func (e *QueryError) Code() string {
	return e.code
}

// Unwrap returns the wrapped error
func (e *QueryError) Unwrap() error {
	return e.err
}

// Is matches errors by code, so wrapped instances compare equal to their sentinel
func (e *QueryError) Is(target error) bool {
	if t, ok := target.(*QueryError); ok {
		return e.code == t.code
	}
	return false
}

// New creates a new QueryError with a formatted message
func New(kind Kind, code, format string, args ...interface{}) *QueryError {
	return &QueryError{
		kind: kind,
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches context to a sentinel error while keeping its kind and code.
// The offending element goes into the message so the UI can surface it.
func Wrap(sentinel *QueryError, format string, args ...interface{}) *QueryError {
	return &QueryError{
		kind: sentinel.kind,
		code: sentinel.code,
		msg:  fmt.Sprintf(format, args...),
		err:  sentinel,
	}
}

// WrapErr wraps an external error (execution collaborator failures)
func WrapErr(sentinel *QueryError, err error) *QueryError {
	return &QueryError{
		kind: sentinel.kind,
		code: sentinel.code,
		msg:  sentinel.msg,
		err:  err,
	}
}

// IsValidation reports whether err is a user-fixable validation error
func IsValidation(err error) bool {
	if qe, ok := err.(*QueryError); ok {
		return qe.kind == KindValidation
	}
	if u, ok := err.(interface{ Unwrap() error }); ok && u.Unwrap() != nil {
		return IsValidation(u.Unwrap())
	}
	return false
}

// IsResolution reports whether err was raised during join resolution
func IsResolution(err error) bool {
	if qe, ok := err.(*QueryError); ok {
		return qe.kind == KindResolution
	}
	if u, ok := err.(interface{ Unwrap() error }); ok && u.Unwrap() != nil {
		return IsResolution(u.Unwrap())
	}
	return false
}
