// File: driver/metrics.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricConnectionsCreatedCount = []string{"driver", "connections", "created", "count"}
	MetricConnectionsClosedCount  = []string{"driver", "connections", "closed", "count"}
	MetricAdmissionDuplicateCount = []string{"driver", "admission", "duplicate", "count"}
	MetricAdmissionLostRaceCount  = []string{"driver", "admission", "lost", "race", "count"}
	MetricAdmissionDroppedCount   = []string{"driver", "admission", "dropped", "count"}
	MetricAssemblyViolationCount  = []string{"driver", "assembly", "violation", "count"}
	MetricAssemblyCapacityCount   = []string{"driver", "assembly", "capacity", "count"}
	MetricDatagramInCount         = []string{"driver", "datagram", "in", "count"}
	MetricDatagramInBytes         = []string{"driver", "datagram", "in", "bytes"}
	MetricDatagramDroppedCount    = []string{"driver", "datagram", "dropped", "count"}
	MetricFrameInvalidCount       = []string{"driver", "frame", "invalid", "count"}
)

// TelemetryLabel names a dimension attached to both metrics and logs.
type TelemetryLabel string

var (
	LabelEndpoint TelemetryLabel = "endpoint"
	LabelSession  TelemetryLabel = "session_id"
	LabelStream   TelemetryLabel = "stream_id"
	LabelError    TelemetryLabel = "error"
	LabelState    TelemetryLabel = "state"
)

// M builds a metric label.
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// L builds a slog attribute.
func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
