package driver

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// fakeEndpoint satisfies api.ReceiveChannelEndpoint without a socket.
type fakeEndpoint struct {
	name      string
	closed    atomic.Bool
	closeOnce sync.Once
	inbox     chan []byte
}

func newFakeEndpoint(name string) *fakeEndpoint {
	return &fakeEndpoint{name: name, inbox: make(chan []byte, 64)}
}

func (e *fakeEndpoint) Name() string { return e.name }

func (e *fakeEndpoint) IsOpen() bool { return !e.closed.Load() }

func (e *fakeEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.inbox)
	})
	return nil
}

func (e *fakeEndpoint) PollDatagram(buf []byte) (int, *net.UDPAddr, error) {
	dg, ok := <-e.inbox
	if !ok {
		return 0, nil, net.ErrClosed
	}
	n := copy(buf, dg)
	return n, testControlAddr, nil
}

var testControlAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 19999}

// recordingHandler captures deliveries; safe for cross-thread asserts.
type recordingHandler struct {
	mu         sync.Mutex
	deliveries []delivered
}

type delivered struct {
	payload   []byte
	sessionID int32
	flags     uint8
}

func (h *recordingHandler) OnData(data []byte, offset, length int, sessionID int32, flags uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload := make([]byte, length)
	copy(payload, data[offset:offset+length])
	h.deliveries = append(h.deliveries, delivered{payload, sessionID, flags})
	return nil
}

func (h *recordingHandler) snapshot() []delivered {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]delivered(nil), h.deliveries...)
}

// recordingSink captures driver events.
type recordingSink struct {
	mu     sync.Mutex
	events []api.Event
}

func (s *recordingSink) OnEvent(ev api.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last(t api.EventType) (api.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == t {
			return s.events[i], true
		}
	}
	return api.Event{}, false
}

func (s *recordingSink) count(t api.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
