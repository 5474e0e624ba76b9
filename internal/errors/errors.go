package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a carbonmatch error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // 413
	ErrSchema          ErrorCode = "SCHEMA_ERROR"      // 422
	ErrValueFormat     ErrorCode = "VALUE_FORMAT"      // 422, per row, never fatal to a file
	ErrEmptyInput      ErrorCode = "EMPTY_INPUT"       // 422
	ErrEncoding        ErrorCode = "ENCODING"          // warning only
	ErrCancelled       ErrorCode = "CANCELLED"         // 499
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// CarbonError represents a structured error with code, status, and details.
type CarbonError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CarbonError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CarbonError {
	return &CarbonError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown or expired run.
func NewNotFound(identifier string) *CarbonError {
	return &CarbonError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("run not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *CarbonError {
	return &CarbonError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewPayloadTooLarge creates a 413 error when an upload exceeds the configured limit.
func NewPayloadTooLarge(maxBytes int64) *CarbonError {
	return &CarbonError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload exceeds maximum size of %d bytes", maxBytes),
		Details: map[string]any{"max_bytes": maxBytes},
	}
}

// NewSchema creates a 422 error when no right ascension / declination
// columns can be identified in a catalog header.
func NewSchema(missing []string, header []string) *CarbonError {
	return &CarbonError{
		Code:    ErrSchema,
		Status:  422,
		Message: fmt.Sprintf("catalog has no recognizable %v column(s); header was %v", missing, header),
		Details: map[string]any{"missing": missing, "header": header},
	}
}

// NewValueFormat creates a per-row error for a value that is neither
// decimal degrees nor sexagesimal.
func NewValueFormat(column, value, reason string) *CarbonError {
	return &CarbonError{
		Code:    ErrValueFormat,
		Status:  422,
		Message: fmt.Sprintf("%s: cannot parse %q: %s", column, value, reason),
		Details: map[string]any{"column": column, "value": value},
	}
}

// NewEmptyInput creates a 422 error when parsing left no usable rows.
func NewEmptyInput(what string, rejected int) *CarbonError {
	return &CarbonError{
		Code:    ErrEmptyInput,
		Status:  422,
		Message: fmt.Sprintf("no valid coordinates in %s (%d rows rejected)", what, rejected),
		Details: map[string]any{"input": what, "rejected": rejected},
	}
}

// NewEncoding describes a non-fatal fallback from UTF-8 to Latin-1.
func NewEncoding(name string) *CarbonError {
	return &CarbonError{
		Code:    ErrEncoding,
		Status:  200,
		Message: fmt.Sprintf("%s is not valid UTF-8; decoded as Latin-1", name),
		Details: map[string]any{"input": name},
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *CarbonError {
	return &CarbonError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *CarbonError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &CarbonError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// As unwraps err into a *CarbonError.
func As(err error) (*CarbonError, bool) {
	var cErr *CarbonError
	if stderrors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}

// Is checks if an error (or any error it wraps) is a CarbonError with the given code.
func Is(err error, code ErrorCode) bool {
	if cErr, ok := As(err); ok {
		return cErr.Code == code
	}
	return false
}
