// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrInvalidTrade      = errors.New("invalid trade")
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidNumber     = errors.New("invalid number")
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDataNotFound      = errors.New("data not found")
	ErrDatabaseError     = errors.New("database error")
	ErrServiceDisposed   = errors.New("analytics service disposed")
)

// ParseError describes a rejected import row.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: %s (%q): %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(row int, field, value string, err error) *ParseError {
	return &ParseError{
		Row:   row,
		Field: field,
		Value: value,
		Err:   err,
	}
}

// MetricError represents a failure to resolve or compute a metric.
type MetricError struct {
	Metric string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric error [%s]: %v", e.Metric, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// NewMetricError creates a new MetricError.
func NewMetricError(metric string, err error) *MetricError {
	return &MetricError{
		Metric: metric,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
