// File: driver/options.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"

	"github.com/momentics/hioload-udp/api"
)

type options struct {
	logger *slog.Logger
	sink   *metrics.Metrics
	events api.EventSink

	admissionCapacity     int
	initialBufferCapacity int
	maxMessageCapacity    int
	readBufferSize        int
	commandsPerCycle      int
	idleSleep             time.Duration
}

func defaultOptions() options {
	return options{
		logger:            slog.Default(),
		sink:              metrics.Default(),
		admissionCapacity: 1024,
		readBufferSize:    64 * 1024,
		commandsPerCycle:  16,
		idleSleep:         100 * time.Microsecond,
	}
}

// Option tunes conductor and receiver construction.
type Option func(*options) error

// WithLogger sets the structured logger; components derive their own
// child loggers from it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", api.ErrInvalidArgument)
		}
		o.logger = logger
		return nil
	}
}

// WithMetricsSink sets the telemetry sink.
func WithMetricsSink(sink *metrics.Metrics) Option {
	return func(o *options) error {
		if sink == nil {
			return fmt.Errorf("%w: nil metrics sink", api.ErrInvalidArgument)
		}
		o.sink = sink
		return nil
	}
}

// WithEventSink sets the observability event sink. Defaults to a sink
// that logs through the driver logger.
func WithEventSink(events api.EventSink) Option {
	return func(o *options) error {
		if events == nil {
			return fmt.Errorf("%w: nil event sink", api.ErrInvalidArgument)
		}
		o.events = events
		return nil
	}
}

// WithAdmissionCapacity bounds each endpoint's admission ring. Overflow
// drops commands by design: the orphan session recovers on the peer's
// setup retry. Rounded up to a power of two.
func WithAdmissionCapacity(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("%w: admission capacity %d", api.ErrInvalidArgument, n)
		}
		o.admissionCapacity = n
		return nil
	}
}

// WithBufferCapacity sets the initial and maximum per-session reassembly
// buffer sizes. Zero selects the assembly package defaults.
func WithBufferCapacity(initial, max int) Option {
	return func(o *options) error {
		if initial < 0 || max < 0 {
			return fmt.Errorf("%w: buffer capacity %d/%d", api.ErrInvalidArgument, initial, max)
		}
		o.initialBufferCapacity = initial
		o.maxMessageCapacity = max
		return nil
	}
}

// WithReadBufferSize sets the receiver's datagram read buffer.
func WithReadBufferSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("%w: read buffer size %d", api.ErrInvalidArgument, n)
		}
		o.readBufferSize = n
		return nil
	}
}

// WithCommandsPerCycle bounds how many admission commands one conductor
// duty cycle applies per endpoint.
func WithCommandsPerCycle(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("%w: commands per cycle %d", api.ErrInvalidArgument, n)
		}
		o.commandsPerCycle = n
		return nil
	}
}

// WithIdleSleep sets how long the conductor sleeps after a workless
// duty cycle.
func WithIdleSleep(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("%w: idle sleep %s", api.ErrInvalidArgument, d)
		}
		o.idleSleep = d
		return nil
	}
}
