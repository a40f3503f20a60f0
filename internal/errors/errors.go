package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Notepad error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrInvalidLLMOutput ErrorCode = "INVALID_LLM_OUTPUT" // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrBusy             ErrorCode = "BUSY"               // 409
	ErrCancelled        ErrorCode = "CANCELLED"          // 499
	ErrUpstream         ErrorCode = "UPSTREAM_ERROR"     // 500
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// NotepadError represents a structured error with code, status, and details.
type NotepadError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NotepadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NotepadError {
	return &NotepadError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidLLMOutput creates a 400 error for model output that fails shape validation.
func NewInvalidLLMOutput(msg string) *NotepadError {
	return &NotepadError{
		Code:    ErrInvalidLLMOutput,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing update or checklist step.
func NewNotFound(kind, identifier string) *NotepadError {
	return &NotepadError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *NotepadError {
	return &NotepadError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewBusy creates a 409 error when a plan or refine request is already running.
func NewBusy() *NotepadError {
	return &NotepadError{
		Code:    ErrBusy,
		Status:  409,
		Message: "a generation is already in progress; try again when it finishes",
	}
}

// NewCancelled creates a 499 error when the caller gave up on an operation.
func NewCancelled(op string) *NotepadError {
	return &NotepadError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewUpstream creates a 500 error for failures of the language-model backend.
func NewUpstream(err error) *NotepadError {
	msg := "upstream error"
	if err != nil {
		msg = err.Error()
	}
	return &NotepadError{
		Code:    ErrUpstream,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NotepadError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NotepadError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a NotepadError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NotepadError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// As returns the NotepadError in err's chain, or wraps err as INTERNAL.
func As(err error) *NotepadError {
	var nErr *NotepadError
	if stderrors.As(err, &nErr) {
		return nErr
	}
	return NewInternal(err)
}
