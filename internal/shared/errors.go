package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pipeline error taxonomy. Every stage failure maps onto exactly one of
// these; callers branch with errors.Is.
var (
	ErrMalformedFrame        = errors.New("malformed frame")
	ErrOverloaded            = errors.New("dispatcher overloaded")
	ErrTranscriptionFailed   = errors.New("transcription failed")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrSynthesisFailed       = errors.New("synthesis failed")
	ErrTransportClosed       = errors.New("transport closed")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}
