// Package domain contains the shared wire types for the licensing platform.
// These types serve as the Single Source of Truth (SSOT) for the SDK, the
// API server and their tests: every API-facing operation speaks the
// Response envelope defined here.
package domain

// ResponseStatus indicates whether an API operation succeeded.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "Success"
	StatusError   ResponseStatus = "Error"
)

// ErrorKind classifies an error envelope produced on the client side.
// It is a local taxonomy and never travels over the wire.
type ErrorKind string

const (
	// ErrKindNone marks a successful response.
	ErrKindNone ErrorKind = ""
	// ErrKindInvalidArgument marks missing or blank required input,
	// rejected before any I/O.
	ErrKindInvalidArgument ErrorKind = "invalid_argument"
	// ErrKindAuth marks a rejection by the identity provider during
	// discovery, grant, refresh or revocation.
	ErrKindAuth ErrorKind = "auth_error"
	// ErrKindUnauthorized marks a call attempted without an attached
	// bearer token, rejected before any I/O.
	ErrKindUnauthorized ErrorKind = "unauthorized"
	// ErrKindServer marks a response body that did not match the
	// expected envelope schema.
	ErrKindServer ErrorKind = "server_error"
	// ErrKindTransport marks a connection-level failure or timeout.
	ErrKindTransport ErrorKind = "transport_unavailable"
	// ErrKindUnknown marks any other failure.
	ErrKindUnknown ErrorKind = "unknown"
)

// Response is the uniform envelope returned by every API-facing operation.
// The wire shape is {status, message, data}; Kind is client-side only.
type Response[T any] struct {
	Status  ResponseStatus `json:"status"`
	Message string         `json:"message"`
	Data    T              `json:"data"`
	Kind    ErrorKind      `json:"-"`
}

// Unit is the payload type for endpoints that promise no data.
type Unit = struct{}

// OK builds a success envelope carrying the given payload.
func OK[T any](message string, data T) Response[T] {
	return Response[T]{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// Err builds an error envelope with the given kind and message.
// Data is left at its zero value; callers must never assume a payload
// is present on an error envelope.
func Err[T any](kind ErrorKind, message string) Response[T] {
	return Response[T]{
		Status:  StatusError,
		Message: message,
		Kind:    kind,
	}
}

// IsError reports whether the envelope carries an error status.
func (r Response[T]) IsError() bool {
	return r.Status == StatusError
}
