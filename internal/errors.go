package internal

import (
	"errors"
	"net/http"
)

// HTTPError represents an HTTP error with all data needed for rendering.
// It implements the error interface and carries structured data for the
// error handler to build a response body from.
type HTTPError struct {
	// Err is the underlying error (for logging and debug output, not
	// exposed to users unless debug mode is enabled).
	Err error

	// Message is the user-facing error message.
	Message string

	// RequestID is the request tracking ID.
	RequestID string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.RequestID = id
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusBadRequest, message), opts)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusUnauthorized, message), opts)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusForbidden, message), opts)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusNotFound, message), opts)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusMethodNotAllowed, message), opts)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusConflict, message), opts)
}

func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusUnprocessableEntity, message), opts)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusTooManyRequests, message), opts)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return applyOpts(NewHTTPError(http.StatusInternalServerError, message), opts)
}

func applyOpts(e *HTTPError, opts []HTTPErrorOption) *HTTPError {
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsHTTPError reports whether the error chain contains an HTTPError.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// AsHTTPError extracts the HTTPError from an error chain.
// Returns nil if the chain contains no HTTPError.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}
