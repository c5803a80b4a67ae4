// Package errors provides coded application errors. Every package declares
// its own ErrorCode values and builds errors through a Factory so that log
// lines can carry a stable error_code field.
package errors

// ErrorCode is a stable, machine readable identifier for an error kind.
type ErrorCode string

// Error is an error that carries an ErrorCode and optional context data.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
