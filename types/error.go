package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a backend or orchestration failure.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"
	ErrAuthentication     ErrorCode = "AUTHENTICATION"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrEmptyRoster        ErrorCode = "EMPTY_ROSTER"
)

// authMarker is the text fallback for classifying authentication
// failures from errors that do not carry a structured code.
const authMarker = "Authentication Error"

// Error represents a structured error with code, message, and metadata.
// Message holds the user-visible text surfaced in system notices.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
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

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// GetErrorCode extracts the error code from an error, or "" for errors
// that are not a *Error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAuthenticationError reports whether err is an authentication
// failure. Structured errors are classified by code; foreign errors fall
// back to the authentication text marker.
func IsAuthenticationError(err error) bool {
	if err == nil {
		return false
	}
	if code := GetErrorCode(err); code != "" {
		return code == ErrAuthentication
	}
	return strings.Contains(err.Error(), authMarker)
}

// NoticeText returns the user-visible text for an adapter failure. For
// structured errors this is the bare message without the code prefix.
func NoticeText(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
