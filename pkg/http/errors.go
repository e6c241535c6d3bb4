package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AppError is an error that knows its HTTP status and wire code.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// newAppError creates a new application error.
func newAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam attaches a detail rendered under "params".
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError keeps the cause for logs; it is never rendered.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// StatusOf returns the HTTP status an error renders with.
func StatusOf(err error) int {
	var appErr *AppError
	var he *echo.HTTPError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &appErr):
		return appErr.Status
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// TooManyRequestsError reports a rate-limited write.
func TooManyRequestsError(message string) *AppError {
	return newAppError("ERR_THROTTLED", "", message, http.StatusTooManyRequests)
}

// ServiceUnavailableError reports a dependency that cannot take requests right now.
func ServiceUnavailableError(message string) *AppError {
	return newAppError("ERR_UNAVAILABLE", "", message, http.StatusServiceUnavailable)
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}
