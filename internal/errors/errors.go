package errors

import (
	"errors"
	"fmt"
	"strings"
)

// AppError carries a stable error code alongside a human-readable message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Newf(code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the error code from an error. For an *AppError the code
// field is used directly; for plain errors the token before the first colon
// of the message is taken, falling back to UNEXPECTED_ERROR.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	msg := err.Error()
	if idx := strings.Index(msg, ":"); idx > 0 {
		token := strings.TrimSpace(msg[:idx])
		if token != "" && !strings.ContainsAny(token, " \t") {
			return token
		}
	}
	return CodeUnexpected
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return CodeOf(err) == code
}
