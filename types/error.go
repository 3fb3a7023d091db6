package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the verifier.
type ErrorCode string

// Run error codes
const (
	ErrSetup             ErrorCode = "SETUP_FAILED"
	ErrCheckpointTimeout ErrorCode = "CHECKPOINT_TIMEOUT"
	ErrActionFailed      ErrorCode = "ACTION_FAILED"
	ErrOTPNotCaptured    ErrorCode = "OTP_NOT_CAPTURED"
	ErrEvidenceFailed    ErrorCode = "EVIDENCE_FAILED"
	ErrAborted           ErrorCode = "ABORTED"
)

// Config and storage error codes
const (
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrStorage       ErrorCode = "STORAGE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Checkpoint string    `json:"checkpoint,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithCheckpoint records the checkpoint label the error was raised at.
func (e *Error) WithCheckpoint(label string) *Error {
	e.Checkpoint = label
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether any *Error in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
