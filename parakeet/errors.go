package parakeet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Fault discriminates who is responsible for a failed call: the caller
// (bad request, missing resource, auth) or the service.
type Fault string

const (
	FaultClient Fault = "client"
	FaultServer Fault = "server"
)

// ErrorCode is the machine-readable error code returned by the service,
// or assigned locally for failures that never reached it.
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	ErrCodeAuthentication ErrorCode = "authentication_error"
	ErrCodePermission     ErrorCode = "permission_denied"
	ErrCodeNotFound       ErrorCode = "resource_not_found"
	ErrCodeRateLimited    ErrorCode = "rate_limit_exceeded"
	ErrCodeConflict       ErrorCode = "conflict"
	ErrCodeServer         ErrorCode = "server_error"
	ErrCodeConnection     ErrorCode = "connection_error"
	ErrCodeWaitTimeout    ErrorCode = "wait_timeout"
)

// Error is the root error type returned by the Go SDK.
type Error struct {
	Fault      Fault
	Code       ErrorCode
	Message    string
	Suggestion string
	Details    map[string]interface{}
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Fault != "" {
		base = fmt.Sprintf("%s [%s fault]", base, e.Fault)
	}
	if e.Suggestion != "" {
		base = fmt.Sprintf("%s | suggestion: %s", base, e.Suggestion)
	}
	return base
}

// Unwrap exposes the wrapped cause when available.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// APIError represents an error response returned by the Parakeet service.
type APIError struct {
	Err        *Error
	HTTPStatus int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Err.Error(), e.HTTPStatus)
}

// Unwrap exposes the underlying *Error so errors.As matches both types.
func (e *APIError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, opts ...func(*Error)) *Error {
	err := &Error{
		Fault:   FaultClient,
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func withFault(f Fault) func(*Error) {
	return func(e *Error) {
		e.Fault = f
	}
}

func withSuggestion(s string) func(*Error) {
	return func(e *Error) {
		e.Suggestion = s
	}
}

func withDetails(details map[string]interface{}) func(*Error) {
	return func(e *Error) {
		e.Details = details
	}
}

func withCause(err error) func(*Error) {
	return func(e *Error) {
		e.Cause = err
	}
}

// apiErrorPayload mirrors the error envelope sent by the service.
type apiErrorPayload struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Fault      Fault                  `json:"fault,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

type apiErrorEnvelope struct {
	Error *apiErrorPayload `json:"error"`
}

// translateHTTPError turns a non-2xx response into a typed *APIError. The
// body's error envelope wins when present; the HTTP status class decides the
// fault when the body does not.
func translateHTTPError(status int, body []byte) error {
	payload := &apiErrorPayload{
		Message: fmt.Sprintf("server returned status %d", status),
	}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		payload = envelope.Error
		if payload.Message == "" {
			payload.Message = fmt.Sprintf("server returned status %d", status)
		}
	}

	if payload.Fault == "" {
		if status >= 500 {
			payload.Fault = FaultServer
		} else {
			payload.Fault = FaultClient
		}
	}
	if payload.Code == "" {
		payload.Code = codeForStatus(status)
	}
	if payload.Code == ErrCodeAuthentication && payload.Suggestion == "" {
		payload.Suggestion = "Set PARAKEET_API_KEY or pass Config.APIKey"
	}

	return &APIError{
		Err: &Error{
			Fault:      payload.Fault,
			Code:       payload.Code,
			Message:    payload.Message,
			Suggestion: payload.Suggestion,
			Details:    payload.Details,
		},
		HTTPStatus: status,
	}
}

func codeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAuthentication
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrCodeInvalidRequest
	default:
		if status >= 500 {
			return ErrCodeServer
		}
		return ErrCodeInvalidRequest
	}
}

// IsNotFound reports whether err is a service error for a missing resource.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsAuth reports whether err is an authentication or permission failure.
func IsAuth(err error) bool {
	return hasCode(err, ErrCodeAuthentication) || hasCode(err, ErrCodePermission)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// WaitTimeoutError is returned by waiters when the resource did not reach a
// target state within the configured maximum wait.
type WaitTimeoutError struct {
	LastStatus RunStatus
	Waited     string
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%s: run still %q after %s", ErrCodeWaitTimeout, e.LastStatus, e.Waited)
}

// WaitFailedError is returned by waiters when the resource entered a state the
// caller declared fatal.
type WaitFailedError struct {
	Status RunStatus
	Run    *Run
}

func (e *WaitFailedError) Error() string {
	return fmt.Sprintf("run entered failure state %q while waiting", e.Status)
}
