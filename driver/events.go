// File: driver/events.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"errors"
	"log/slog"

	"github.com/momentics/hioload-udp/api"
)

// slogEventSink is the default observability collaborator: it maps
// driver events onto the structured logger.
type slogEventSink struct {
	logger *slog.Logger
}

// OnEvent logs the event at a severity matching its weight. Duplicate
// admissions are normal peer-retry noise and stay at debug.
func (s *slogEventSink) OnEvent(ev api.Event) {
	attrs := []any{
		LabelEndpoint.L(ev.Endpoint),
		LabelSession.L(ev.SessionID),
		LabelStream.L(ev.StreamID),
	}
	if ev.Err != nil {
		attrs = append(attrs, LabelError.L(ev.Err.Error()))
		var se *api.Error
		if errors.As(ev.Err, &se) {
			attrs = append(attrs, slog.String("code", se.Code.String()))
		}
	}
	switch ev.Type {
	case api.EventConnectionCreated, api.EventConnectionClosed:
		s.logger.Info(ev.Type.String(), attrs...)
	case api.EventAdmissionDuplicate:
		s.logger.Debug(ev.Type.String(), attrs...)
	default:
		s.logger.Warn(ev.Type.String(), attrs...)
	}
}
