package errors

import (
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// FieldError describes a single rejected field of a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Code    int          `json:"-"`
	Message string       `json:"error"`
	Op      string       `json:"-"`
	Err     error        `json:"-"`
	Details []FieldError `json:"details,omitempty"`
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

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Validation reports a payload that does not match the request schema.
func Validation(op string, err error, message string, details ...FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: message,
		Op:      op,
		Err:     err,
		Details: details,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

var ErrRateLimitExceeded = New(http.StatusTooManyRequests, "Rate limit exceeded", nil)

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if pkgerrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsValidation(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == http.StatusUnprocessableEntity
}

func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == http.StatusNotFound
}

// HTTPStatus maps err to the status code returned to clients.
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
