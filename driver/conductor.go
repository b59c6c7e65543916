// File: driver/conductor.go
// Package driver
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conductor is the single-threaded owner of all connection state. It
// drains each endpoint's admission ring, creates and routes
// connections, and drives their lifecycle through to close. Nothing
// here runs on a receiver thread; the only inbound data flow is the
// per-endpoint admission ring plus the lifecycle signal channel.

package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/hashicorp/go-metrics"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/core/assembly"
)

type connKey struct {
	endpoint  api.ReceiveEndpoint
	sessionID int32
}

type lifecycleSignal struct {
	endpoint    api.ReceiveEndpoint
	sessionID   int32
	allSessions bool
}

// Conductor consumes admission commands and owns connection lifecycle.
// Run executes the duty cycle on one goroutine; AddEndpoint,
// SignalInactive, and CloseEndpoint may be called from other threads.
type Conductor struct {
	opts   options
	logger *slog.Logger
	sink   *metrics.Metrics
	events api.EventSink

	// mu guards dispatcher registration only; connection state below is
	// touched exclusively by the conductor thread.
	mu          sync.Mutex
	dispatchers map[api.ReceiveEndpoint]*DataDispatcher

	connections map[connKey]*Connection
	lingerQ     *queue.Queue

	lifecycleCh chan lifecycleSignal
	shutdownCh  chan struct{}
	closeOnce   sync.Once
}

// NewConductor creates a conductor. Endpoints are attached afterwards
// with AddEndpoint.
func NewConductor(opts ...Option) (*Conductor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	c := &Conductor{
		opts:        o,
		logger:      o.logger.With(slog.String("component", "conductor")),
		sink:        o.sink,
		events:      o.events,
		dispatchers: make(map[api.ReceiveEndpoint]*DataDispatcher),
		connections: make(map[connKey]*Connection),
		lingerQ:     queue.New(),
		lifecycleCh: make(chan lifecycleSignal, 256),
		shutdownCh:  make(chan struct{}),
	}
	if c.events == nil {
		c.events = &slogEventSink{logger: o.logger}
	}
	return c, nil
}

// AddEndpoint wires a receive channel endpoint into the driver: it
// builds the endpoint's fragment assembler decorating delegate, the
// dispatcher, and the receiver, and registers the dispatcher's
// admission ring with the conductor. One receiver per endpoint.
func (c *Conductor) AddEndpoint(endpoint api.ReceiveChannelEndpoint, delegate api.DataHandler) (*Receiver, error) {
	if endpoint == nil || delegate == nil {
		return nil, fmt.Errorf("%w: nil endpoint or delegate", api.ErrInvalidArgument)
	}
	asm := assembly.NewFragmentAssembler(delegate, c.opts.initialBufferCapacity, c.opts.maxMessageCapacity)
	o := c.opts
	o.events = c.events
	d := newDataDispatcher(endpoint, asm, &o)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.dispatchers[endpoint]; exists {
		return nil, fmt.Errorf("%w: endpoint %q already registered", api.ErrInvalidArgument, endpoint.Name())
	}
	c.dispatchers[endpoint] = d
	return newReceiver(endpoint, d, &o), nil
}

// SignalInactive marks one connection inactive; the conductor lingers
// and then closes it on subsequent duty cycles. Inactivity detection
// itself lives outside this core.
func (c *Conductor) SignalInactive(endpoint api.ReceiveEndpoint, sessionID int32) error {
	return c.signal(lifecycleSignal{endpoint: endpoint, sessionID: sessionID})
}

// CloseEndpoint tears down every connection owned by endpoint through
// the normal inactive-linger-close path.
func (c *Conductor) CloseEndpoint(endpoint api.ReceiveEndpoint) error {
	return c.signal(lifecycleSignal{endpoint: endpoint, allSessions: true})
}

func (c *Conductor) signal(sig lifecycleSignal) error {
	select {
	case <-c.shutdownCh:
		return api.ErrShutdown
	default:
	}
	select {
	case <-c.shutdownCh:
		return api.ErrShutdown
	case c.lifecycleCh <- sig:
		return nil
	}
}

// Run executes duty cycles until ctx is cancelled or Close is called.
func (c *Conductor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.shutdownCh:
			return nil
		default:
		}
		if c.DoWork() == 0 {
			time.Sleep(c.opts.idleSleep)
		}
	}
}

// Close stops Run. Idempotent.
func (c *Conductor) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdownCh)
	})
	return nil
}

// DoWork executes one conductor duty cycle and returns the amount of
// work done. Exposed so the duty cycle can be embedded in an external
// agent loop; must only ever run on one goroutine.
func (c *Conductor) DoWork() int {
	work := c.drainLifecycle()
	for _, d := range c.snapshotDispatchers() {
		for i := 0; i < c.opts.commandsPerCycle; i++ {
			cmd, ok := d.admissionRing.Dequeue()
			if !ok {
				break
			}
			c.onCreateConnectionCommand(d, cmd)
			work++
		}
	}
	work += c.processLinger()
	return work
}

// ConnectionCount returns the number of live (not closed) connections.
// Conductor thread only; intended for duty-cycle hooks and tests.
func (c *Conductor) ConnectionCount() int {
	return len(c.connections)
}

// onCreateConnectionCommand applies one admission command: the
// PENDING to ACTIVE transition. The endpoint-open check pairs with the
// closing thread's release store; a duplicate (endpoint, sessionID) is
// a counted no-op so re-delivery can never double-create.
func (c *Conductor) onCreateConnectionCommand(d *DataDispatcher, cmd CreateConnectionCommand) {
	ep := cmd.Endpoint()
	epLab := LabelEndpoint.M(ep.Name())

	if !ep.IsOpen() {
		c.sink.IncrCounterWithLabels(MetricAdmissionLostRaceCount, 1, []metrics.Label{epLab})
		c.events.OnEvent(api.Event{
			Type:      api.EventAdmissionLostRace,
			Endpoint:  ep.Name(),
			SessionID: cmd.SessionID(),
			StreamID:  cmd.StreamID(),
			Err:       api.NewError(api.ErrCodeLostRace, api.ErrEndpointClosed, "admission raced endpoint close"),
		})
		c.logger.Debug("admission lost race with endpoint close",
			LabelEndpoint.L(ep.Name()), LabelSession.L(cmd.SessionID()))
		return
	}

	key := connKey{endpoint: ep, sessionID: cmd.SessionID()}
	if _, exists := c.connections[key]; exists {
		c.sink.IncrCounterWithLabels(MetricAdmissionDuplicateCount, 1, []metrics.Label{epLab})
		c.events.OnEvent(api.Event{
			Type:      api.EventAdmissionDuplicate,
			Endpoint:  ep.Name(),
			SessionID: cmd.SessionID(),
			StreamID:  cmd.StreamID(),
		})
		return
	}

	conn := newConnection(cmd)
	c.connections[key] = conn

	next := d.cloneRoutes()
	next.Put(conn.SessionID(), conn)
	d.publishRoutes(next)

	c.sink.IncrCounterWithLabels(MetricConnectionsCreatedCount, 1, []metrics.Label{epLab})
	c.events.OnEvent(api.Event{
		Type:      api.EventConnectionCreated,
		Endpoint:  ep.Name(),
		SessionID: conn.SessionID(),
		StreamID:  conn.StreamID(),
	})
	c.logger.Info("connection created",
		LabelEndpoint.L(ep.Name()),
		LabelSession.L(conn.SessionID()),
		LabelStream.L(conn.StreamID()))
}

func (c *Conductor) drainLifecycle() int {
	work := 0
	for {
		select {
		case sig := <-c.lifecycleCh:
			c.onLifecycleSignal(sig)
			work++
		default:
			return work
		}
	}
}

func (c *Conductor) onLifecycleSignal(sig lifecycleSignal) {
	if sig.allSessions {
		for key, conn := range c.connections {
			if key.endpoint == sig.endpoint {
				c.deactivate(conn)
			}
		}
		return
	}
	conn, ok := c.connections[connKey{endpoint: sig.endpoint, sessionID: sig.sessionID}]
	if !ok {
		c.logger.Debug("inactive signal for unknown connection",
			LabelSession.L(sig.sessionID))
		return
	}
	c.deactivate(conn)
}

func (c *Conductor) deactivate(conn *Connection) {
	if conn.state != ConnectionActive {
		return
	}
	conn.state = ConnectionInactive
	c.lingerQ.Add(conn)
}

// processLinger advances queued connections one lifecycle step per duty
// cycle: INACTIVE connections enter LINGER and are marked retired, which
// leaves a full cycle for the receiver thread to release the session
// buffer while the routing entry is still published; LINGER connections
// are then closed for good.
func (c *Conductor) processLinger() int {
	work := 0
	for n := c.lingerQ.Length(); n > 0; n-- {
		conn := c.lingerQ.Remove().(*Connection)
		switch conn.state {
		case ConnectionInactive:
			conn.state = ConnectionLinger
			conn.retire()
			c.lingerQ.Add(conn)
		case ConnectionLinger:
			c.closeConnection(conn)
		}
		work++
	}
	return work
}

// closeConnection completes LINGER to CLOSED by unpublishing the routing
// entry. The session buffer itself is released only on the receiver
// thread: during LINGER when traffic hits the retired connection, or at
// the latest when the receiver reconciles against the snapshot published
// here, before it processes any datagram under it. The conductor never
// touches the assembler's builder map.
func (c *Conductor) closeConnection(conn *Connection) {
	ep := conn.Endpoint()

	c.mu.Lock()
	d := c.dispatchers[ep]
	c.mu.Unlock()

	if d != nil {
		next := d.cloneRoutes()
		next.Remove(conn.SessionID())
		d.publishRoutes(next)
	}

	conn.state = ConnectionClosed
	delete(c.connections, connKey{endpoint: ep, sessionID: conn.SessionID()})

	c.sink.IncrCounterWithLabels(MetricConnectionsClosedCount, 1, []metrics.Label{
		LabelEndpoint.M(ep.Name()),
	})
	c.events.OnEvent(api.Event{
		Type:      api.EventConnectionClosed,
		Endpoint:  ep.Name(),
		SessionID: conn.SessionID(),
		StreamID:  conn.StreamID(),
	})
	c.logger.Info("connection closed",
		LabelEndpoint.L(ep.Name()),
		LabelSession.L(conn.SessionID()))
}

func (c *Conductor) snapshotDispatchers() []*DataDispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*DataDispatcher, 0, len(c.dispatchers))
	for _, d := range c.dispatchers {
		out = append(out, d)
	}
	return out
}
