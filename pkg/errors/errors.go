package errors

import (
	"fmt"
	"net/http"
)

// Error codes used across the engine. Gateway failures abort the operation
// in progress; decode-level failures degrade to safe defaults instead.
const (
	CodeTransport     = "TRANSPORT"
	CodeForumAPI      = "FORUM_API"
	CodeFeedFormat    = "FEED_FORMAT"
	CodeSheetDecode   = "SHEET_DECODE"
	CodeTagCollision  = "TAG_COLLISION"
	CodeEmptySession  = "EMPTY_SESSION"
	CodeSheetConflict = "SHEET_CONFLICT"
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError is the single error shape crossing component boundaries. The
// status code is HTTP-like even when the failure never touched HTTP, so the
// API layer can pass it through unchanged.
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails attaches structured detail (e.g. partial publish progress).
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates an AppError with an explicit status code.
func New(statusCode int, code, message string) *AppError {
	return &AppError{StatusCode: statusCode, Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(statusCode int, code, format string, args ...any) *AppError {
	return New(statusCode, code, fmt.Sprintf(format, args...))
}

// BadRequest creates a 400 error.
func BadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message)
}

// NotFound creates a 404 error.
func NotFound(code, message string) *AppError {
	return New(http.StatusNotFound, code, message)
}

// Conflict creates a 409 error.
func Conflict(code, message string) *AppError {
	return New(http.StatusConflict, code, message)
}

// BadGateway creates a 502 error, the usual shape for forum transport
// failures.
func BadGateway(code, message string) *AppError {
	return New(http.StatusBadGateway, code, message)
}

// Internal creates a 500 error.
func Internal(code, message string) *AppError {
	return New(http.StatusInternalServerError, code, message)
}

// FromError converts any error into an AppError, passing AppErrors through
// untouched.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal(CodeInternal, err.Error())
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// StatusCode extracts the HTTP status, defaulting to 500.
func StatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message extracts the user-facing message. Internal stack detail never
// crosses the API boundary.
func Message(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return err.Error()
}
