package common

import (
	"context"
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match an AppError against the sentinel of its code.
func (e *AppError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// Error codes surfaced to callers and stored on failed run outcomes.
const (
	CodeEmptyStore        = "EMPTY_STORE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeConversion        = "CONVERSION_FAILED"
	CodeAuthentication    = "AUTHENTICATION_FAILED"
	CodeExtractionBackend = "EXTRACTION_BACKEND"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRunInProgress     = "RUN_IN_PROGRESS"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeCancelled         = "CANCELLED"
	CodeConfig            = "CONFIG_ERROR"
	CodeInternal          = "INTERNAL"
)

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrEmptyStore        = errors.New("no document available to process")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrConversion        = errors.New("document conversion failed")
	ErrAuthentication    = errors.New("missing or invalid credentials")
	ErrExtractionBackend = errors.New("extraction backend error")
	ErrPayloadTooLarge   = errors.New("payload too large for extraction backend")
	ErrRunInProgress     = errors.New("a run is already in progress for this session")
)

var codeSentinels = map[string]error{
	CodeEmptyStore:        ErrEmptyStore,
	CodeUnsupportedFormat: ErrUnsupportedFormat,
	CodeConversion:        ErrConversion,
	CodeAuthentication:    ErrAuthentication,
	CodeExtractionBackend: ErrExtractionBackend,
	CodePayloadTooLarge:   ErrPayloadTooLarge,
	CodeRunInProgress:     ErrRunInProgress,
	CodeNotFound:          ErrNotFound,
	CodeInvalidInput:      ErrInvalidInput,
	CodeInternal:          ErrInternal,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func EmptyStoreError() error {
	return NewAppError(CodeEmptyStore, "upload a document before running", nil)
}

func UnsupportedFormatError(name, mediaType string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("%q (%s) is not a PDF, PNG or JPEG document", name, mediaType), nil)
}

func ConversionError(message string, cause error) error {
	return NewAppError(CodeConversion, message, cause)
}

func AuthenticationError(message string, cause error) error {
	return NewAppError(CodeAuthentication, message, cause)
}

func PayloadTooLargeError(message string, cause error) error {
	return NewAppError(CodePayloadTooLarge, message, cause)
}

// ExtractionBackendError builds a backend failure. Transient causes (rate limit,
// timeout, 5xx) must be flagged retryable.
func ExtractionBackendError(message string, retryable bool, cause error) error {
	e := NewAppError(CodeExtractionBackend, message, cause)
	e.Retryable = retryable
	return e
}

// CancelledError reports work abandoned because its context ended.
func CancelledError(message string, cause error) error {
	return NewAppError(CodeCancelled, message, cause)
}

func NotFoundError(what string) error {
	return NewAppError(CodeNotFound, what+" not found", nil)
}

func InvalidInputError(message string) error {
	return NewAppError(CodeInvalidInput, message, nil)
}

func RunInProgressError(sessionID string) error {
	return NewAppError(CodeRunInProgress, "session "+sessionID+" is busy", nil)
}

// Kind returns the error code of the outermost AppError in err's chain.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeInternal
}

// IsRetryable reports whether err was flagged as a transient failure.
func IsRetryable(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Retryable
}
