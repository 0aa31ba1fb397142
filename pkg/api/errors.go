package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure so callers can distinguish
// "wrong password" from "server unreachable" without string matching.
type ErrorKind string

const (
	// KindUnauthorized means the credential is missing, invalid or
	// expired.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindTransport means the request never completed: connection
	// refused, timeout, DNS or TLS failure.
	KindTransport ErrorKind = "transport"
	// KindProtocol means the response did not match the expected shape.
	KindProtocol ErrorKind = "protocol"
	// KindServerRejected means a well-formed request was refused by
	// business logic.
	KindServerRejected ErrorKind = "server_rejected"
)

// Error is the structured failure returned by every gateway operation.
// Callers extract it with errors.As:
//
//	var apiErr *api.Error
//	if errors.As(err, &apiErr) && apiErr.Kind == api.KindTransport { ... }
type Error struct {
	Kind ErrorKind
	// Status is the HTTP status code, zero for transport failures.
	Status int
	// Code is the server's error type tag (e.g. "InvalidCredentials"),
	// when the response body carried one.
	Code string
	// Message is human-readable detail.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%d): %s", e.Code, e.Status, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
