// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error taxonomy of the receive core. All failures stay on the
// thread that produced them and surface as reported events plus local
// cleanup; none of these is fatal to the process.

package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInFlightMessage reports a middle or end fragment arriving for a
	// session with no message under reassembly: a dropped begin fragment or
	// a race against connection teardown. Fatal to that one message only.
	ErrNoInFlightMessage = errors.New("assembly: fragment without in-progress message")

	// ErrMessageTooLarge reports fragment accumulation exceeding the
	// configured maximum message capacity. The partial message is discarded.
	ErrMessageTooLarge = errors.New("assembly: message exceeds maximum capacity")

	ErrEndpointClosed     = errors.New("driver: endpoint is closed")
	ErrAdmissionQueueFull = errors.New("driver: admission queue full")
	ErrInvalidArgument    = errors.New("driver: invalid argument")
	ErrShutdown           = errors.New("driver: shutting down")
)

// ErrorCode classifies the failure carried on a reported event. Every
// failure the driver reports falls into exactly one of these classes.
type ErrorCode int

const (
	// ErrCodeProtocolConsistency: the peer violated fragment sequencing.
	ErrCodeProtocolConsistency ErrorCode = iota + 1

	// ErrCodeLostRace: an admission command arrived for an endpoint that
	// closed while the command was in flight.
	ErrCodeLostRace

	// ErrCodeCapacity: a configured bound was hit (message size, ring).
	ErrCodeCapacity
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeProtocolConsistency:
		return "protocol-consistency"
	case ErrCodeLostRace:
		return "lost-race"
	case ErrCodeCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Error is the structured failure carried on Event.Err: a code for the
// taxonomy above, optional reporting context, and the underlying
// sentinel, so errors.Is and errors.As both keep working for sinks.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any

	cause error
}

// NewError wraps cause with a code and a human-readable message.
func NewError(code ErrorCode, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying sentinel.
func (e *Error) Unwrap() error { return e.cause }

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
