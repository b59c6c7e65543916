package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/transport/udp"
)

func newTestDriver(t *testing.T, opts ...Option) (*Conductor, *fakeEndpoint, *Receiver, *recordingHandler, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	handler := &recordingHandler{}
	opts = append([]Option{WithLogger(quietLogger()), WithEventSink(sink)}, opts...)
	c, err := NewConductor(opts...)
	require.NoError(t, err)
	ep := newFakeEndpoint("udp://127.0.0.1:40123")
	rcv, err := c.AddEndpoint(ep, handler)
	require.NoError(t, err)
	return c, ep, rcv, handler, sink
}

func TestAdmissionThenReassemblyEndToEnd(t *testing.T) {
	c, _, rcv, handler, sink := newTestDriver(t)
	d := rcv.dispatcher

	// Session 7 announces itself, the conductor admits it.
	d.OnDatagram(udp.NewSetupFrame(7, 1, 100), testControlAddr)
	require.Positive(t, c.DoWork())
	require.Equal(t, 1, c.ConnectionCount())
	require.Equal(t, 1, sink.count(api.EventConnectionCreated))

	// "HELLO WORLD" split 4/4/3.
	d.OnDatagram(udp.NewDataFrame(7, 1, 100, api.FlagBegin, []byte("HELL")), testControlAddr)
	d.OnDatagram(udp.NewDataFrame(7, 1, 100, 0, []byte("O WO")), testControlAddr)
	d.OnDatagram(udp.NewDataFrame(7, 1, 100, api.FlagEnd, []byte("RLD")), testControlAddr)

	got := handler.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, "HELLO WORLD", string(got[0].payload))
	require.Equal(t, int32(7), got[0].sessionID)
	require.NotZero(t, got[0].flags&api.FlagUnfragmented)
}

func TestDuplicateAdmissionCreatesOneConnection(t *testing.T) {
	c, ep, rcv, _, sink := newTestDriver(t)
	d := rcv.dispatcher

	cmd, err := NewCreateConnectionCommand(42, 1, 100, testControlAddr, ep)
	require.NoError(t, err)
	require.True(t, d.admissionRing.Enqueue(cmd))
	require.True(t, d.admissionRing.Enqueue(cmd))

	c.DoWork()
	require.Equal(t, 1, c.ConnectionCount())
	require.Equal(t, 1, sink.count(api.EventConnectionCreated))
	require.Equal(t, 1, sink.count(api.EventAdmissionDuplicate))
}

func TestAdmissionLostRaceOnClosedEndpoint(t *testing.T) {
	c, ep, rcv, _, sink := newTestDriver(t)
	d := rcv.dispatcher

	cmd, err := NewCreateConnectionCommand(11, 1, 100, testControlAddr, ep)
	require.NoError(t, err)
	require.True(t, d.admissionRing.Enqueue(cmd))
	require.NoError(t, ep.Close())

	c.DoWork()
	require.Zero(t, c.ConnectionCount())
	require.Equal(t, 1, sink.count(api.EventAdmissionLostRace))

	ev, ok := sink.last(api.EventAdmissionLostRace)
	require.True(t, ok)
	require.ErrorIs(t, ev.Err, api.ErrEndpointClosed)
	var se *api.Error
	require.ErrorAs(t, ev.Err, &se)
	require.Equal(t, api.ErrCodeLostRace, se.Code)
}

func TestLifecycleFreesBufferBeforeUnrouting(t *testing.T) {
	c, ep, rcv, handler, sink := newTestDriver(t)
	d := rcv.dispatcher

	d.OnDatagram(udp.NewSetupFrame(9, 1, 100), testControlAddr)
	c.DoWork()
	require.Equal(t, 1, c.ConnectionCount())

	// Leave a partial message in flight.
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, api.FlagBegin, []byte("PART")), testControlAddr)
	require.Equal(t, 1, d.assembler.SessionBufferCount())

	require.NoError(t, c.SignalInactive(ep, 9))
	c.DoWork() // inactive -> linger, connection retired
	require.Equal(t, 1, c.ConnectionCount())

	// Traffic hitting the retired connection releases the builder on the
	// receiver side while the routing entry is still published.
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, 0, []byte("IA")), testControlAddr)
	require.Zero(t, d.assembler.SessionBufferCount())
	require.Equal(t, 1, c.ConnectionCount())

	c.DoWork() // linger -> closed

	require.Zero(t, c.ConnectionCount())
	require.Equal(t, 1, sink.count(api.EventConnectionClosed))
	// Buffer already freed during linger; a second free finds nothing.
	require.False(t, d.assembler.FreeSessionBuffer(9))

	// Routing is gone: further data is dropped, not delivered.
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, api.FlagEnd, []byte("L")), testControlAddr)
	require.Empty(t, handler.snapshot())
}

func TestQuietSessionBufferFreedOnSnapshotChange(t *testing.T) {
	c, ep, rcv, _, _ := newTestDriver(t)
	d := rcv.dispatcher

	d.OnDatagram(udp.NewSetupFrame(9, 1, 100), testControlAddr)
	c.DoWork()
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, api.FlagBegin, []byte("PART")), testControlAddr)
	require.Equal(t, 1, d.assembler.SessionBufferCount())

	// Close with no further traffic for session 9.
	require.NoError(t, c.SignalInactive(ep, 9))
	c.DoWork()
	c.DoWork()
	require.Zero(t, c.ConnectionCount())
	require.Equal(t, 1, d.assembler.SessionBufferCount())

	// Any datagram makes the receiver reconcile against the new routing
	// snapshot and sweep the orphaned builder.
	d.OnDatagram(udp.NewDataFrame(77, 1, 100, api.FlagUnfragmented, []byte("x")), testControlAddr)
	require.Zero(t, d.assembler.SessionBufferCount())
}

func TestReadmissionDoesNotResurrectStaleBuffer(t *testing.T) {
	c, ep, rcv, handler, sink := newTestDriver(t)
	d := rcv.dispatcher

	d.OnDatagram(udp.NewSetupFrame(9, 1, 100), testControlAddr)
	c.DoWork()
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, api.FlagBegin, []byte("STALE")), testControlAddr)

	// Close and re-admit session 9 before the receiver sees any of it.
	require.NoError(t, c.SignalInactive(ep, 9))
	c.DoWork()
	c.DoWork()
	d.OnDatagram(udp.NewSetupFrame(9, 1, 100), testControlAddr)
	c.DoWork()
	require.Equal(t, 2, sink.count(api.EventConnectionCreated))

	// The end fragment belongs to a message the old incarnation started;
	// it must not complete against the stale buffer.
	d.OnDatagram(udp.NewDataFrame(9, 1, 100, api.FlagEnd, []byte("X")), testControlAddr)
	require.Empty(t, handler.snapshot())
	require.Equal(t, 1, sink.count(api.EventProtocolViolation))
	require.Zero(t, d.assembler.SessionBufferCount())
}

// Teardown while fragments stream in: the builder map is only ever
// touched on the receiver goroutine, so conductor-driven closes must not
// disturb it.
func TestTeardownUnderLiveTraffic(t *testing.T) {
	const sessions = 32
	c, ep, rcv, _, sink := newTestDriver(t)
	d := rcv.dispatcher

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()
	rcvDone := make(chan struct{})
	go func() {
		defer close(rcvDone)
		_ = rcv.Run(ctx)
	}()

	for i := int32(1); i <= sessions; i++ {
		ep.inbox <- udp.NewSetupFrame(i, 1, 100)
	}
	require.Eventually(t, func() bool {
		return sink.count(api.EventConnectionCreated) == sessions
	}, 2*time.Second, time.Millisecond)

	trafficDone := make(chan struct{})
	go func() {
		defer close(trafficDone)
		for j := 0; j < 50; j++ {
			for i := int32(1); i <= sessions; i++ {
				ep.inbox <- udp.NewDataFrame(i, 1, 100, api.FlagBegin, []byte("frag"))
				ep.inbox <- udp.NewDataFrame(i, 1, 100, api.FlagEnd, []byte("ment"))
			}
		}
	}()

	for i := int32(1); i <= sessions; i++ {
		require.NoError(t, c.SignalInactive(ep, i))
	}
	require.Eventually(t, func() bool {
		return sink.count(api.EventConnectionClosed) == sessions
	}, 5*time.Second, time.Millisecond)

	<-trafficDone
	cancel()
	<-rcvDone

	// Receiver stopped; finish its reconcile and verify nothing leaked.
	d.reconcileRoutes()
	require.Zero(t, d.assembler.SessionBufferCount())
}

func TestSignalInactiveForUnknownSessionIsBenign(t *testing.T) {
	c, ep, _, _, sink := newTestDriver(t)
	require.NoError(t, c.SignalInactive(ep, 404))
	c.DoWork()
	require.Zero(t, sink.count(api.EventConnectionClosed))
}

func TestCloseEndpointTearsDownAllSessions(t *testing.T) {
	c, ep, rcv, _, sink := newTestDriver(t)
	d := rcv.dispatcher

	d.OnDatagram(udp.NewSetupFrame(1, 1, 100), testControlAddr)
	d.OnDatagram(udp.NewSetupFrame(2, 1, 100), testControlAddr)
	c.DoWork()
	require.Equal(t, 2, c.ConnectionCount())

	require.NoError(t, c.CloseEndpoint(ep))
	c.DoWork()
	c.DoWork()
	require.Zero(t, c.ConnectionCount())
	require.Equal(t, 2, sink.count(api.EventConnectionClosed))
}

func TestAdmissionRingOverflowDropsCommands(t *testing.T) {
	c, _, rcv, _, sink := newTestDriver(t, WithAdmissionCapacity(2))
	d := rcv.dispatcher

	d.OnDatagram(udp.NewSetupFrame(1, 1, 100), testControlAddr)
	d.OnDatagram(udp.NewSetupFrame(2, 1, 100), testControlAddr)
	d.OnDatagram(udp.NewSetupFrame(3, 1, 100), testControlAddr)

	require.Equal(t, 1, sink.count(api.EventAdmissionDropped))
	c.DoWork()
	require.Equal(t, 2, c.ConnectionCount())
}

func TestConductorRunStopsOnClose(t *testing.T) {
	c, err := NewConductor(WithLogger(quietLogger()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	require.NoError(t, c.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("conductor did not stop after Close")
	}
	// Signals after shutdown are refused, not blocked.
	require.ErrorIs(t, c.SignalInactive(newFakeEndpoint("x"), 1), api.ErrShutdown)
}

func TestNewCreateConnectionCommandValidation(t *testing.T) {
	ep := newFakeEndpoint("x")
	_, err := NewCreateConnectionCommand(1, 1, 1, nil, ep)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewCreateConnectionCommand(1, 1, 1, testControlAddr, nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	cmd, err := NewCreateConnectionCommand(42, 7, 100, testControlAddr, ep)
	require.NoError(t, err)
	require.Equal(t, int32(42), cmd.SessionID())
	require.Equal(t, int32(7), cmd.StreamID())
	require.Equal(t, int32(100), cmd.InitialTermID())
	require.Same(t, testControlAddr, cmd.ControlAddress())
}
