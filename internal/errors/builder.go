package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError is the rich error type produced by this package's builders.
// It carries a developer message, a user-safe hint, and a map of reportable
// details that are safe to surface in logs and API responses.
type InternalError struct {
	err               error
	hint              string
	reportableDetails map[string]interface{}
}

// NewError starts building an error from a plain message.
func NewError(msg string) *InternalError {
	return &InternalError{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf starts building an error from a formatted message.
func NewErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts building an error that wraps an existing one,
// preserving its cause chain and any existing marks.
func WithError(err error) *InternalError {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &InternalError{err: err}
}

// WithHint attaches a user-safe hint describing how to resolve the error.
func (e *InternalError) WithHint(hint string) *InternalError {
	e.hint = hint
	return e
}

// WithHintf attaches a formatted user-safe hint.
func (e *InternalError) WithHintf(format string, args ...interface{}) *InternalError {
	e.hint = fmt.Sprintf(format, args...)
	return e
}

// WithReportableDetails attaches structured details that may be logged or
// returned to API consumers. Keys replace earlier values on repeated calls.
func (e *InternalError) WithReportableDetails(details map[string]interface{}) *InternalError {
	if e.reportableDetails == nil {
		e.reportableDetails = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.reportableDetails[k] = v
	}
	return e
}

// Mark finalizes the builder, classifying the error against a sentinel.
func (e *InternalError) Mark(sentinel error) error {
	err := e.err
	if e.hint != "" {
		err = errors.WithHint(err, e.hint)
	}
	for k, v := range e.reportableDetails {
		err = errors.WithDetailf(err, "%s: %v", k, v)
	}
	return errors.Mark(&markedError{error: err, details: e.reportableDetails, hint: e.hint}, sentinel)
}

// markedError retains the builder's hint/details for response projection.
type markedError struct {
	error
	hint    string
	details map[string]interface{}
}

func (m *markedError) Unwrap() error { return m.error }

// Hint extracts the user-safe hint from an error, if any.
func Hint(err error) string {
	var m *markedError
	if errors.As(err, &m) {
		return m.hint
	}
	return ""
}

// ReportableDetails extracts the structured details from an error, if any.
func ReportableDetails(err error) map[string]interface{} {
	var m *markedError
	if errors.As(err, &m) {
		return m.details
	}
	return nil
}
