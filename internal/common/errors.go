package common

import (
	"errors"
	"fmt"
)

// Error codes shared by every layer. They are stable and surface in API bodies.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeExtractionFailure = "EXTRACTION_FAILURE"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStore             = "STORE_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Is lets errors.Is(err, ErrNotFound) match any AppError carrying that code.
func (e *AppError) Is(target error) bool {
	for _, s := range sentinels {
		if target == s.err {
			return s.code == e.Code
		}
	}
	return false
}

// Common application errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrExtractionFailure = errors.New("extraction failed")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStore             = errors.New("store error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal error")
)

var sentinels = []struct {
	err  error
	code string
}{
	{ErrInvalidInput, CodeInvalidInput},
	{ErrExtractionFailure, CodeExtractionFailure},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrStore, CodeStore},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrInternal, CodeInternal},
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

func InvalidInputf(format string, args ...any) error {
	return NewAppError(CodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

func ExtractionFailure(message string, cause error) error {
	return NewAppError(CodeExtractionFailure, message, cause)
}

func NotFoundf(format string, args ...any) error {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

func InvalidTransitionf(format string, args ...any) error {
	return NewAppError(CodeInvalidTransition, fmt.Sprintf(format, args...), nil)
}

// StoreFailure classifies a persistence error. NotFound and InvalidInput
// errors pass through unchanged so callers keep their meaning.
func StoreFailure(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrNotFound) || errors.Is(cause, ErrInvalidInput) {
		return cause
	}
	return NewAppError(CodeStore, op, cause)
}

// Code returns the AppError code found in err's chain, or CodeInternal.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeInternal
}

// Message returns the human-readable part of err, without the code prefix.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}
