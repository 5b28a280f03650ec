package errors

import (
	"encoding/json"
	stderrors "errors"
)

// ServerError is the error body the REST API returns alongside 4xx/5xx
// responses. Fields are optional; servers differ in what they fill in.
type ServerError struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// ParseServerError decodes a server error body. It returns nil when the body
// is empty or not a JSON error document.
func ParseServerError(body []byte) *ServerError {
	if len(body) == 0 {
		return nil
	}
	var se ServerError
	if err := json.Unmarshal(body, &se); err != nil {
		return nil
	}
	if se.Message == "" && se.Error == "" {
		return nil
	}
	return &se
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
