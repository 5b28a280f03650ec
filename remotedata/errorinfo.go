package remotedata

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	hderrors "github.com/kbukum/hyperdata/errors"
	"github.com/kbukum/hyperdata/httpclient"
)

// ErrorInfo describes why a fetch failed. StatusCode is 0 when no HTTP
// response was received.
type ErrorInfo struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	Message    string `json:"message"`
}

// Error implements error, so an ErrorInfo can travel through error returns.
func (e ErrorInfo) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.StatusText, e.Message)
}

// NotFound builds a synthesized 404.
func NotFound(message string) ErrorInfo {
	return ErrorInfo{
		StatusCode: http.StatusNotFound,
		StatusText: http.StatusText(http.StatusNotFound),
		Message:    message,
	}
}

// ErrorFrom maps any error onto an ErrorInfo.
//
//   - *httpclient.Error keeps the transport status (0 for connection errors)
//   - *errors.AppError keeps its HTTP status
//   - context cancellation and deadline map to status 0
//   - anything else is a 500
func ErrorFrom(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}

	var info ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	var he *httpclient.Error
	if errors.As(err, &he) {
		return ErrorInfo{StatusCode: he.StatusCode, StatusText: he.StatusText(), Message: he.Message}
	}
	var ae *hderrors.AppError
	if errors.As(err, &ae) {
		return ErrorInfo{StatusCode: ae.HTTPStatus, StatusText: http.StatusText(ae.HTTPStatus), Message: ae.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{Message: err.Error()}
	}
	return ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		StatusText: http.StatusText(http.StatusInternalServerError),
		Message:    err.Error(),
	}
}
