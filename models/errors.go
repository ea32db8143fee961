package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification of a pipeline failure.
type ErrorKind string

const (
	ErrKindInvalidConfiguration   ErrorKind = "invalid_configuration"
	ErrKindFileNotFound           ErrorKind = "file_not_found"
	ErrKindUnsupportedFileType    ErrorKind = "unsupported_file_type"
	ErrKindExtractionFailed       ErrorKind = "extraction_failed"
	ErrKindEmbeddingFailed        ErrorKind = "embedding_failed"
	ErrKindEmbeddingCountMismatch ErrorKind = "embedding_count_mismatch"
	ErrKindIndexNotFound          ErrorKind = "index_not_found"
	ErrKindIndexAlreadyExists     ErrorKind = "index_already_exists"
	ErrKindDimensionMismatch      ErrorKind = "dimension_mismatch"
	ErrKindBackendUnavailable     ErrorKind = "backend_unavailable"
)

// PipelineError carries an ErrorKind alongside a human-readable message and
// the wrapped cause, so orchestrators can map failures to structured results.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError builds a PipelineError without a cause.
func NewPipelineError(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapPipelineError builds a PipelineError around an underlying cause.
func WrapPipelineError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the ErrorKind from err, or empty when err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
