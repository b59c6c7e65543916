// File: driver/dispatcher.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DataDispatcher is the receiver-thread half of one endpoint: it
// classifies inbound datagrams by session, feeds admitted sessions
// straight into the fragment assembler in-line, and produces exactly
// one admission command per newly observed session.

package driver

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/hashicorp/go-metrics"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/core/assembly"
	"github.com/momentics/hioload-udp/core/collections"
	"github.com/momentics/hioload-udp/core/concurrency"
	"github.com/momentics/hioload-udp/transport/udp"
)

// DataDispatcher owns the per-endpoint session routing view and the
// fragment assembler. All methods except publishRoutes and cloneRoutes
// run on the receiver thread; the conductor publishes routing updates
// as immutable snapshots through an atomic pointer, so the hot path
// reads them wait-free and lock-free. Builder teardown also happens
// here, on the receiver thread, by observing retired connections and
// snapshot changes.
type DataDispatcher struct {
	endpoint  api.ReceiveChannelEndpoint
	assembler *assembly.FragmentAssembler

	// admissionRing carries commands to the conductor: single producer
	// (this dispatcher's receiver thread), single consumer (conductor).
	admissionRing *concurrency.OneToOneRing[CreateConnectionCommand]

	// routes is the published (endpoint, sessionID) fast-path lookup.
	routes atomic.Pointer[collections.Int32Map[*Connection]]

	// lastRoutes is the snapshot this thread last reconciled against;
	// owners records which connection's fragments occupy each session
	// builder. Both receiver thread only; together they let the builder
	// map be released here instead of on the conductor thread.
	lastRoutes *collections.Int32Map[*Connection]
	owners     map[int32]*Connection

	// pending tracks sessions whose admission command is in flight, so a
	// datagram burst produces one command, not one per datagram.
	// Receiver thread only.
	pending map[int32]struct{}

	logger *slog.Logger
	sink   *metrics.Metrics
	events api.EventSink
	epLab  metrics.Label
}

func newDataDispatcher(
	endpoint api.ReceiveChannelEndpoint,
	assembler *assembly.FragmentAssembler,
	opts *options,
) *DataDispatcher {
	d := &DataDispatcher{
		endpoint:      endpoint,
		assembler:     assembler,
		admissionRing: concurrency.NewOneToOneRing[CreateConnectionCommand](opts.admissionCapacity),
		owners:        make(map[int32]*Connection),
		pending:       make(map[int32]struct{}),
		logger:        opts.logger.With(LabelEndpoint.L(endpoint.Name())),
		sink:          opts.sink,
		events:        opts.events,
		epLab:         LabelEndpoint.M(endpoint.Name()),
	}
	initial := collections.NewInt32Map[*Connection](16)
	d.routes.Store(initial)
	d.lastRoutes = initial
	return d
}

// reconcileRoutes applies a newly published routing snapshot on the
// receiver thread. A builder whose session left the routing, changed
// connection identity, or was retired is released here, before any
// datagram is processed under the new snapshot. Pending-admission marks
// for sessions that became routed are cleared, since their command has
// been consumed.
func (d *DataDispatcher) reconcileRoutes() {
	snap := d.routes.Load()
	if snap == d.lastRoutes {
		return
	}
	for sid, owner := range d.owners {
		if conn, ok := snap.Get(sid); ok && conn == owner && !conn.Retired() {
			continue
		}
		d.assembler.FreeSessionBuffer(sid)
		delete(d.owners, sid)
	}
	for sid := range d.pending {
		if _, ok := snap.Get(sid); ok {
			delete(d.pending, sid)
		}
	}
	d.lastRoutes = snap
}

// OnDatagram consumes one raw datagram. Receiver thread only.
func (d *DataDispatcher) OnDatagram(buf []byte, from *net.UDPAddr) {
	d.reconcileRoutes()
	hdr, err := udp.ParseFrameHeader(buf)
	if err != nil {
		d.sink.IncrCounterWithLabels(MetricFrameInvalidCount, 1, []metrics.Label{d.epLab})
		d.logger.Debug("invalid frame", LabelError.L(err.Error()))
		return
	}
	switch hdr.Type {
	case udp.FrameTypeData:
		d.onDataFrame(hdr, buf)
	case udp.FrameTypeSetup:
		d.onSetupFrame(hdr, from)
	default:
		d.sink.IncrCounterWithLabels(MetricFrameInvalidCount, 1, []metrics.Label{d.epLab})
	}
}

// onDataFrame executes the full admitted-session path in-line: route
// lookup, reassembly, delivery. No suspension, no queueing.
func (d *DataDispatcher) onDataFrame(hdr udp.FrameHeader, buf []byte) {
	conn, ok := d.routes.Load().Get(hdr.SessionID)
	if !ok {
		// Unadmitted session: either still pending admission or never set
		// up. Nothing can be reassembled before the route exists.
		d.sink.IncrCounterWithLabels(MetricDatagramDroppedCount, 1, []metrics.Label{d.epLab})
		return
	}
	if conn.Retired() {
		// Teardown has begun: release the builder on this thread while the
		// route is still published, then drop.
		d.assembler.FreeSessionBuffer(hdr.SessionID)
		delete(d.owners, hdr.SessionID)
		d.sink.IncrCounterWithLabels(MetricDatagramDroppedCount, 1, []metrics.Label{d.epLab})
		return
	}
	if len(d.pending) != 0 {
		delete(d.pending, hdr.SessionID)
	}
	if !api.IsUnfragmented(hdr.Flags) {
		d.owners[hdr.SessionID] = conn
	}

	err := d.assembler.OnData(buf, udp.HeaderLength, hdr.PayloadLength(), hdr.SessionID, hdr.Flags)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, api.ErrNoInFlightMessage):
		d.sink.IncrCounterWithLabels(MetricAssemblyViolationCount, 1, []metrics.Label{
			d.epLab, LabelSession.M(strconv.Itoa(int(hdr.SessionID))),
		})
		d.events.OnEvent(api.Event{
			Type:      api.EventProtocolViolation,
			Endpoint:  d.endpoint.Name(),
			SessionID: hdr.SessionID,
			StreamID:  conn.StreamID(),
			Err: api.NewError(api.ErrCodeProtocolConsistency, err, "fragment reassembly violation").
				WithContext("flags", hdr.Flags),
		})
	case errors.Is(err, api.ErrMessageTooLarge):
		d.sink.IncrCounterWithLabels(MetricAssemblyCapacityCount, 1, []metrics.Label{d.epLab})
		d.events.OnEvent(api.Event{
			Type:      api.EventCapacityExceeded,
			Endpoint:  d.endpoint.Name(),
			SessionID: hdr.SessionID,
			StreamID:  conn.StreamID(),
			Err: api.NewError(api.ErrCodeCapacity, err, "message dropped").
				WithContext("fragment_length", hdr.PayloadLength()),
		})
	default:
		// Application handler failure; not a transport concern.
		d.logger.Warn("data handler error",
			LabelSession.L(hdr.SessionID), LabelError.L(err.Error()))
	}
}

// onSetupFrame admits a newly observed session: exactly one command per
// session crosses to the conductor. Re-setup of an admitted or pending
// session is benign peer retry.
func (d *DataDispatcher) onSetupFrame(hdr udp.FrameHeader, from *net.UDPAddr) {
	if _, ok := d.routes.Load().Get(hdr.SessionID); ok {
		delete(d.pending, hdr.SessionID)
		return
	}
	if _, ok := d.pending[hdr.SessionID]; ok {
		// An empty ring proves the conductor consumed everything this
		// thread produced; no route means the command was rejected or the
		// connection already closed again, so the retry may re-admit.
		if d.admissionRing.Len() != 0 {
			return
		}
		delete(d.pending, hdr.SessionID)
	}
	cmd, err := NewCreateConnectionCommand(hdr.SessionID, hdr.StreamID, hdr.TermID, from, d.endpoint)
	if err != nil {
		d.logger.Warn("setup frame rejected", LabelError.L(err.Error()))
		return
	}
	if !d.admissionRing.Enqueue(cmd) {
		// Bounded by design: drop and count. The session recovers on the
		// peer's setup retry.
		d.sink.IncrCounterWithLabels(MetricAdmissionDroppedCount, 1, []metrics.Label{d.epLab})
		d.events.OnEvent(api.Event{
			Type:      api.EventAdmissionDropped,
			Endpoint:  d.endpoint.Name(),
			SessionID: hdr.SessionID,
			StreamID:  hdr.StreamID,
			Err: api.NewError(api.ErrCodeCapacity, api.ErrAdmissionQueueFull, "admission command dropped").
				WithContext("ring_capacity", d.admissionRing.Cap()),
		})
		return
	}
	d.pending[hdr.SessionID] = struct{}{}
}

// publishRoutes installs a new immutable routing snapshot. Conductor
// thread only; the store pairs with the receiver's atomic load.
func (d *DataDispatcher) publishRoutes(m *collections.Int32Map[*Connection]) {
	d.routes.Store(m)
}

// cloneRoutes copies the current snapshot for modification. Conductor
// thread only.
func (d *DataDispatcher) cloneRoutes() *collections.Int32Map[*Connection] {
	cur := d.routes.Load()
	next := collections.NewInt32Map[*Connection](cur.Len() + 1)
	cur.Range(func(k int32, v *Connection) bool {
		next.Put(k, v)
		return true
	})
	return next
}
