package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes returned to API clients
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is an error with the HTTP status and client-facing message it
// should surface as. Err is the cause and is only shown outside production.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
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

// Envelope renders the failure body {success:false, message, code}; the
// cause is added under "error" when withDetail is set.
func (e *AppError) Envelope(withDetail bool) map[string]interface{} {
	body := map[string]interface{}{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	}
	if withDetail && e.Err != nil {
		body["error"] = e.Err.Error()
	}
	return body
}

func newError(code string, status int) func(message string, err error) *AppError {
	return func(message string, err error) *AppError {
		return &AppError{Code: code, Message: message, Status: status, Err: err}
	}
}

var (
	// Validation is a 400 for missing or malformed input
	Validation = newError(CodeValidation, http.StatusBadRequest)
	// NotFound is a 404 for an id with no row behind it
	NotFound = newError(CodeNotFound, http.StatusNotFound)
	// Conflict is a 409 for duplicates, referenced rows and lost races
	Conflict = newError(CodeConflict, http.StatusConflict)
	// InvalidTransition is a 422 for a status change the state machine forbids
	InvalidTransition = newError(CodeInvalidTransition, http.StatusUnprocessableEntity)
	// Internal is a 500; its message stays generic
	Internal = newError(CodeInternal, http.StatusInternalServerError)
)

var (
	ErrRateLimitExceeded = &AppError{
		Code:    CodeRateLimited,
		Message: "Too many requests, please try again later.",
		Status:  http.StatusTooManyRequests,
	}
	ErrRouteNotFound = NotFound("Route not found", nil)
)

// GetAppError returns the AppError in err's chain, or a generic 500
// wrapping err when there is none.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Server error", err)
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
