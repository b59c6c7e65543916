// File: api/events.go
// Package api defines driver lifecycle event types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventType discriminates driver lifecycle events.
type EventType int

const (
	EventConnectionCreated EventType = iota
	EventConnectionClosed
	EventAdmissionDuplicate
	EventAdmissionLostRace
	EventAdmissionDropped
	EventProtocolViolation
	EventCapacityExceeded
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnectionCreated:
		return "connection-created"
	case EventConnectionClosed:
		return "connection-closed"
	case EventAdmissionDuplicate:
		return "admission-duplicate"
	case EventAdmissionLostRace:
		return "admission-lost-race"
	case EventAdmissionDropped:
		return "admission-dropped"
	case EventProtocolViolation:
		return "protocol-violation"
	case EventCapacityExceeded:
		return "capacity-exceeded"
	default:
		return "unknown"
	}
}

// Event is emitted towards the external observability collaborator.
// Events never carry control flow; failures are already handled locally
// by the emitting thread.
type Event struct {
	Type      EventType
	Endpoint  string
	SessionID int32
	StreamID  int32
	Err       error
}

// EventSink consumes driver events. Implementations must be safe for
// concurrent use: both the receiver and conductor threads emit.
type EventSink interface {
	OnEvent(ev Event)
}

// EventSinkFunc converts a function into an EventSink.
type EventSinkFunc func(ev Event)

// OnEvent calls the underlying function.
func (f EventSinkFunc) OnEvent(ev Event) {
	f(ev)
}
