// File: driver/receiver.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/hashicorp/go-metrics"

	"github.com/momentics/hioload-udp/api"
)

// Receiver is the per-endpoint I/O loop: it polls datagrams off the
// socket and runs the dispatcher in-line. The whole admitted-session
// path, classification, reassembly, and delivery, executes on this one
// goroutine.
type Receiver struct {
	endpoint   api.ReceiveChannelEndpoint
	dispatcher *DataDispatcher
	readBuf    []byte
	logger     *slog.Logger
	sink       *metrics.Metrics
	epLab      metrics.Label
}

func newReceiver(endpoint api.ReceiveChannelEndpoint, d *DataDispatcher, opts *options) *Receiver {
	return &Receiver{
		endpoint:   endpoint,
		dispatcher: d,
		readBuf:    make([]byte, opts.readBufferSize),
		logger:     opts.logger.With(slog.String("component", "receiver"), LabelEndpoint.L(endpoint.Name())),
		sink:       opts.sink,
		epLab:      LabelEndpoint.M(endpoint.Name()),
	}
}

// Run polls the endpoint until it closes or ctx is cancelled.
// Cancelling ctx closes the endpoint to unblock the poll.
func (r *Receiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = r.endpoint.Close()
	})
	defer stop()

	r.logger.Info("receiver started")
	for {
		n, from, err := r.endpoint.PollDatagram(r.readBuf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !r.endpoint.IsOpen() {
				r.logger.Info("receiver stopped")
				return ctx.Err()
			}
			r.logger.Warn("poll error", LabelError.L(err.Error()))
			continue
		}
		r.sink.IncrCounterWithLabels(MetricDatagramInCount, 1, []metrics.Label{r.epLab})
		r.sink.IncrCounterWithLabels(MetricDatagramInBytes, float32(n), []metrics.Label{r.epLab})
		r.dispatcher.OnDatagram(r.readBuf[:n], from)
	}
}

// Endpoint returns the polled endpoint.
func (r *Receiver) Endpoint() api.ReceiveChannelEndpoint {
	return r.endpoint
}
