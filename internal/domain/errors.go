package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
	Kind() string
}

// Machine-readable error kinds returned to API clients
const (
	KindNotFound             = "not_found"
	KindConflict             = "conflict"
	KindValidation           = "validation_error"
	KindPayloadTooLarge      = "payload_too_large"
	KindUnsupportedMediaType = "unsupported_media_type"
	KindStorageFailure       = "storage_failure"
	KindInternal             = "internal_error"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("already exists")
	ErrValidation           = errors.New("validation failed")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrStorageFailure       = errors.New("storage failure")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// PayloadTooLargeError indicates an upload above the configured maximum
	PayloadTooLargeError struct {
		Message  string
		MaxBytes int64
	}

	// UnsupportedMediaTypeError indicates a MIME type outside the allow-list
	UnsupportedMediaTypeError struct {
		Message  string
		MimeType string
	}

	// StorageFailureError wraps blob I/O failures
	StorageFailureError struct {
		Message string
		Err     error
	}
)

func (e *NotFoundError) Error() string             { return e.Message }
func (e *ValidationError) Error() string           { return e.Message }
func (e *PayloadTooLargeError) Error() string      { return e.Message }
func (e *UnsupportedMediaTypeError) Error() string { return e.Message }
func (e *StorageFailureError) Error() string       { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *PayloadTooLargeError) StatusCode() int {
	return http.StatusRequestEntityTooLarge
}
func (e *UnsupportedMediaTypeError) StatusCode() int {
	return http.StatusUnsupportedMediaType
}
func (e *StorageFailureError) StatusCode() int { return http.StatusInternalServerError }

func (e *NotFoundError) Kind() string             { return KindNotFound }
func (e *ValidationError) Kind() string           { return KindValidation }
func (e *PayloadTooLargeError) Kind() string      { return KindPayloadTooLarge }
func (e *UnsupportedMediaTypeError) Kind() string { return KindUnsupportedMediaType }
func (e *StorageFailureError) Kind() string       { return KindStorageFailure }

// Is lets errors.Is match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool             { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool           { return target == ErrValidation }
func (e *PayloadTooLargeError) Is(target error) bool      { return target == ErrPayloadTooLarge }
func (e *UnsupportedMediaTypeError) Is(target error) bool { return target == ErrUnsupportedMediaType }
func (e *StorageFailureError) Is(target error) bool       { return target == ErrStorageFailure }

// Unwrap exposes the underlying blob error
func (e *StorageFailureError) Unwrap() error { return e.Err }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder, file)
	ResourceID   int64  // ID of the conflicting resource, 0 when unknown (constraint race)
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Kind implements the HTTPError interface
func (e *ConflictError) Kind() string {
	return KindConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
