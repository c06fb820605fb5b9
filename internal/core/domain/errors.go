package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a bad chunk configuration or an empty query.
	ErrValidation = errors.New("validation failed")

	// ErrProvider indicates the embedding provider call failed.
	ErrProvider = errors.New("embedding provider error")

	// ErrParse indicates a persisted index could not be decoded.
	ErrParse = errors.New("malformed index")

	// ErrPartialFailure indicates a document was kept with unembedded chunks.
	ErrPartialFailure = errors.New("partial failure")

	// ErrMissingCredentials indicates the provider needs an API key that is not set.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnsupportedType indicates an unknown provider, backend, processor or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ValidationError reports an invalid argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation and ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == ErrInvalidInput
}

// ProviderError reports a failed embedding call.
type ProviderError struct {
	// Provider is the provider name (e.g. "openai").
	Provider string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Message is the provider's own error message.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": request failed"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// NotFoundError reports a missing index file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "index not found: " + e.Path
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ParseError reports a corrupt persisted index.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse index %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// PartialFailureError reports a document retained with unembedded chunks.
type PartialFailureError struct {
	DocumentID string
	Failed     int
	Total      int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("document %s: %d of %d chunks failed to embed", e.DocumentID, e.Failed, e.Total)
}

// Is matches ErrPartialFailure.
func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }
