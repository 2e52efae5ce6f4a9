package services

import (
	"errors"
)

var (
	ErrNoUsableFace      = errors.New("no usable face in query image")
	ErrExtractorDisabled = errors.New("facial analysis is disabled")
	ErrExtractorFailed   = errors.New("facial analysis service unavailable")
	ErrEmptyUpdate       = errors.New("no fields to update")
	ErrEmbeddingMismatch = errors.New("embeddings have different lengths")
	ErrZeroEmbedding     = errors.New("embedding has zero magnitude")
)

// ValidationError is a caller input problem; the reason is shown to the operator
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
