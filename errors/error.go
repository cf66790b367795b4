package errors

import (
	"fmt"
)

// NoMoreRowsError occurs when there are no more rows in a RowIterator
type NoMoreRowsError struct{}

// Error returns a textual representation of this NoMoreRowsError
func (e NoMoreRowsError) Error() string {
	return "No more rows"
}

// NoMoreQueriesError occurs when there are no more queries in a QuerySequence
type NoMoreQueriesError struct{}

// Error returns a textual representation of this NoMoreQueriesError
func (e NoMoreQueriesError) Error() string {
	return "No more queries"
}

// NoMoreResultsError occurs when a ResultIterator has produced all of its results
type NoMoreResultsError struct{}

// Error returns a textual representation of this NoMoreResultsError
func (e NoMoreResultsError) Error() string {
	return "No more results"
}

// IncompatibleSchemaError occurs when a search result does not match the Schema established by earlier results
type IncompatibleSchemaError struct {
	Expected int
	Actual   int
}

// Error returns a textual representation of this IncompatibleSchemaError
func (e IncompatibleSchemaError) Error() string {
	return fmt.Sprintf("Inconsistent remote schema: result has %d columns, but %d were established by an earlier result", e.Actual, e.Expected)
}

// IncompatibleRowError occurs when a row's width does not match an expected Schema
type IncompatibleRowError struct {
	Expected int
	Actual   int
}

// Error returns a textual representation of this IncompatibleRowError
func (e IncompatibleRowError) Error() string {
	return fmt.Sprintf("Row width %d is not compatible with Schema of width %d", e.Actual, e.Expected)
}

// InterruptedError occurs when an operation observes a cancellation request
type InterruptedError struct{ Cause error }

// Error returns a textual representation of this InterruptedError
func (e InterruptedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Interrupted: %v", e.Cause)
	}
	return "Interrupted"
}

// Unwrap returns the cancellation cause
func (e InterruptedError) Unwrap() error {
	return e.Cause
}

// RetryExhaustedError occurs when a search still fails after all permitted attempts
type RetryExhaustedError struct {
	Attempts int
	Last     error // Last is the failure of the final attempt
	All      error // All aggregates the failures of every attempt
}

// Error returns a textual representation of this RetryExhaustedError
func (e RetryExhaustedError) Error() string {
	return fmt.Sprintf("Search failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the failure of the final attempt
func (e RetryExhaustedError) Unwrap() error {
	return e.Last
}

// AdviceError replaces the message of an error with caller-supplied guidance, retaining the cause
type AdviceError struct {
	Advice string
	Cause  error
}

// Error returns the advice text
func (e AdviceError) Error() string {
	return e.Advice
}

// Unwrap returns the original error
func (e AdviceError) Unwrap() error {
	return e.Cause
}

// CorruptPageError occurs when stored row data fails its integrity check
type CorruptPageError struct {
	Page int
}

// Error returns a textual representation of this CorruptPageError
func (e CorruptPageError) Error() string {
	return fmt.Sprintf("Stored page %d failed checksum verification", e.Page)
}

// NoSchemaError occurs when rows are supplied before their Schema is known
type NoSchemaError struct{}

// Error returns a textual representation of this NoSchemaError
func (e NoSchemaError) Error() string {
	return "Schema has not been established"
}

// RowIndexError occurs when a row index is out of range
type RowIndexError struct {
	Index int64
	Count int64
}

// Error returns a textual representation of this RowIndexError
func (e RowIndexError) Error() string {
	return fmt.Sprintf("Row index %d out of range [0, %d)", e.Index, e.Count)
}
