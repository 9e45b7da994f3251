// Package errors defines the closed error taxonomy of the request path.
// Every kind carries enough context for debugging (request body, response
// body, HTTP status) while keeping one-line summaries short.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Registry sentinels.
var (
	// ErrInvalidSpec indicates a malformed "provider:model" spec
	ErrInvalidSpec = errors.New("invalid model spec")

	// ErrUnknownProvider indicates the provider id is not in the catalog
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrModelNotFound indicates the model id is not in the provider catalog
	ErrModelNotFound = errors.New("model not found")
)

// TransportError represents a network-level failure: DNS, TLS, connection
// reset. Transport errors are retriable.
type TransportError struct {
	// Reason is a short description of the failure
	Reason string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Reason)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error { return e.Cause }

// ProtocolError represents a malformed response: failed JSON decode where
// JSON was expected, truncated bodies, unexpected content types.
type ProtocolError struct {
	// Reason is a short description of the failure
	Reason string

	// ResponseBody is the offending body, when available
	ResponseBody []byte

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// Unwrap returns the underlying cause
func (e *ProtocolError) Unwrap() error { return e.Cause }

// APIError represents a non-2xx response from the vendor.
type APIError struct {
	// Status is the HTTP status code
	Status int

	// Reason extracted from the vendor error body, or a per-status default
	Reason string

	// RequestBody is the encoded request, when available
	RequestBody []byte

	// ResponseBody is the raw error body, when available
	ResponseBody []byte
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Reason)
}

// Retriable reports whether the request may be retried: 5xx only, never
// 4xx.
func (e *APIError) Retriable() bool {
	return e.Status >= 500
}

// ValidationError represents invalid caller input: bad spec, bad message,
// bad schema, bad options.
type ValidationError struct {
	// Reason is a short description of the violation
	Reason string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// Unwrap returns the underlying cause
func (e *ValidationError) Unwrap() error { return e.Cause }

// SchemaValidationError represents a generated object that failed schema
// validation.
type SchemaValidationError struct {
	// Paths lists the offending object paths
	Paths []string

	// Messages lists the violation messages, parallel to Paths
	Messages []string

	// Cause is the underlying validator error
	Cause error
}

// Error implements the error interface
func (e *SchemaValidationError) Error() string {
	if len(e.Paths) == 0 {
		return "generated object failed schema validation"
	}
	return fmt.Sprintf("generated object failed schema validation at %v", e.Paths)
}

// Unwrap returns the underlying cause
func (e *SchemaValidationError) Unwrap() error { return e.Cause }

// AuthError represents missing or rejected credentials.
type AuthError struct {
	// Provider id the credentials were for
	Provider string

	// Reason is a short description
	Reason string
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Reason)
}

// CancelledError represents a caller-cancelled request.
type CancelledError struct {
	Cause error
}

// Error implements the error interface
func (e *CancelledError) Error() string { return "request cancelled" }

// Unwrap returns the underlying cause
func (e *CancelledError) Unwrap() error { return e.Cause }

// TimeoutError represents a deadline exceeded before completion.
type TimeoutError struct {
	Cause error
}

// Error implements the error interface
func (e *TimeoutError) Error() string { return "request timed out" }

// Unwrap returns the underlying cause
func (e *TimeoutError) Unwrap() error { return e.Cause }

// Http2BodyTooLargeError is returned when a request body exceeds the
// HTTP/2 safety threshold on a transport that may negotiate HTTP/2.
type Http2BodyTooLargeError struct {
	// Size of the encoded body in bytes
	Size int

	// Protocols the transport is configured with
	Protocols []string
}

// Error implements the error interface
func (e *Http2BodyTooLargeError) Error() string {
	return fmt.Sprintf("request body of %d bytes exceeds the HTTP/2 limit; use an HTTP/1-only client for large bodies", e.Size)
}

// FromContext maps a context error onto the taxonomy.
func FromContext(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Cause: err}
	case errors.Is(err, context.Canceled):
		return &CancelledError{Cause: err}
	default:
		return err
	}
}

// statusDefaults maps HTTP statuses to fallback reasons used when the
// vendor body carries no recognizable error message.
var statusDefaults = map[int]string{
	400: "Bad Request: the request was malformed",
	401: "Unauthorized: invalid or missing API key",
	403: "Forbidden: access denied",
	404: "Not Found: unknown endpoint or model",
	429: "Rate Limited: too many requests",
}

// NewAPIError builds an APIError, extracting the reason from the first
// matching vendor error field or falling back to a per-status default.
func NewAPIError(status int, requestBody, responseBody []byte) *APIError {
	return &APIError{
		Status:       status,
		Reason:       extractReason(status, responseBody),
		RequestBody:  requestBody,
		ResponseBody: responseBody,
	}
}

func extractReason(status int, body []byte) string {
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if reason := vendorReason(decoded); reason != "" {
			return reason
		}
	}
	if reason, ok := statusDefaults[status]; ok {
		return reason
	}
	if status >= 500 {
		return fmt.Sprintf("Server Error: the provider returned %d", status)
	}
	return fmt.Sprintf("HTTP Error %d", status)
}

// vendorReason probes the vendor error fields in precedence order:
// error.message, error (string), message, detail, details,
// error_description.
func vendorReason(decoded map[string]interface{}) string {
	if errObj, ok := decoded["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := decoded["error"].(string); ok && msg != "" {
		return msg
	}
	for _, key := range []string{"message", "detail", "details", "error_description"} {
		if msg, ok := decoded[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

// Retriable reports whether the error may be retried: transport errors
// and 5xx API errors only.
func Retriable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Retriable()
	}
	return false
}
