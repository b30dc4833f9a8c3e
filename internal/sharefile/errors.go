// Package sharefile provides a client for the ShareFile v3 REST API:
// password-grant login, folder and item operations, file transfer, and
// share creation.
package sharefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, sharefile.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("sharefile: bad request")
	ErrUnauthorized = errors.New("sharefile: unauthorized")
	ErrForbidden    = errors.New("sharefile: forbidden")
	ErrNotFound     = errors.New("sharefile: not found")
	ErrConflict     = errors.New("sharefile: conflict")
	ErrThrottled    = errors.New("sharefile: throttled")
	ErrServerError  = errors.New("sharefile: server error")
)

// Lifecycle and argument errors.
var (
	// ErrUnauthenticated is returned by every Session method when the
	// session was not produced by a successful Login.
	ErrUnauthenticated = errors.New("sharefile: session is not authenticated")
	// ErrAuthentication is returned by Login when the password grant is rejected.
	ErrAuthentication = errors.New("sharefile: authentication failed")
	ErrInvalidArgument = errors.New("sharefile: invalid argument")
)

// APIError wraps a sentinel error with the HTTP status code, the OData
// error code and message, and the raw body when it could not be decoded.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sharefile: HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("sharefile: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// odataError mirrors the ShareFile error body:
// {"code":"NotFound","message":{"lang":"en-US","value":"..."}}
type odataError struct {
	Code    string `json:"code"`
	Message struct {
		Value string `json:"value"`
	} `json:"message"`
}

// newAPIError builds an APIError from a non-2xx status and its body.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    string(body),
		Err:        classifyStatus(status),
	}

	var oe odataError
	if json.Unmarshal(body, &oe) == nil && oe.Message.Value != "" {
		apiErr.Code = oe.Code
		apiErr.Message = oe.Message.Value
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
