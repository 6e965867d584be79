package apperrors

import "errors"

var (
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrAmbiguousQuestion  = errors.New("question is ambiguous")
	ErrNoTablesFound      = errors.New("no matching tables found")
	ErrValidationFailed   = errors.New("sql validation failed")
	ErrSecurityRejected   = errors.New("sql rejected by security checks")
	ErrExecutionFailed    = errors.New("query execution failed")
	ErrBackendTimeout     = errors.New("backend call timed out")
	ErrBackendUnavailable = errors.New("reasoning backend unavailable")
	ErrUnknownDatabase    = errors.New("unknown target database")
)
