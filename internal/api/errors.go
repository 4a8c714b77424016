// Package api exposes the analysis sessions over HTTP and websocket.
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error codes carried in APIError bodies.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeHTTP         = "HTTP_ERROR"
	CodeUnknownError = "UNKNOWN_ERROR"
)

// APIError is the JSON body of every failed API call. Status is the HTTP
// status and is not serialized.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	e := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewBadRequestError reports a malformed request, e.g. an upload without
// the file field.
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, CodeBadRequest, message, cause)
}

// NewValidationError reports a missing or empty path parameter.
func NewValidationError(field string) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidation, "missing "+field, nil)
}

// NewNotFoundError reports an unknown session or an absent preview.
func NewNotFoundError(resource string, id string) *APIError {
	return newAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewConflictError reports a submit while an analysis is in flight.
func NewConflictError(message string) *APIError {
	return newAPIError(http.StatusConflict, CodeConflict, message, nil)
}

// NewInternalError wraps an unexpected server-side failure. The cause is
// only rendered when error details are enabled.
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, CodeInternal, message, cause)
}

// NewServiceUnavailableError reports that the session limit is reached.
func NewServiceUnavailableError(message string) *APIError {
	return newAPIError(http.StatusServiceUnavailable, CodeUnavailable, message, nil)
}

// NewErrorHandler renders every handler error as an APIError body.
// Details of 5xx errors are stripped unless showDetails is set.
func NewErrorHandler(showDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr APIError
		switch e := err.(type) {
		case *APIError:
			apiErr = *e
		case *echo.HTTPError:
			apiErr = APIError{Status: e.Code, Code: CodeHTTP, Message: fmt.Sprint(e.Message)}
		default:
			apiErr = APIError{
				Status:  http.StatusInternalServerError,
				Code:    CodeUnknownError,
				Message: "An unexpected error occurred",
				Details: err.Error(),
			}
		}

		if apiErr.Status >= http.StatusInternalServerError && !showDetails {
			apiErr.Details = ""
		}
		c.JSON(apiErr.Status, apiErr)
	}
}
