// File: server/server.go
// Package server provides the readiness-driven WebSocket server: one listener,
// one reactor and a table of connections, all owned by a single goroutine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/momentics/hioload-wsloop/control"
	"github.com/momentics/hioload-wsloop/internal/transport"
	"github.com/momentics/hioload-wsloop/protocol"
	"github.com/momentics/hioload-wsloop/reactor"
)

// listenerToken is reserved for the listening socket.
const listenerToken reactor.Token = 0

// clientOpts is the delivery discipline for accepted sockets: every event
// must be followed by a Reregister or the socket goes silent.
const clientOpts = reactor.Edge | reactor.Oneshot

// acceptPause is how long the listener stays unregistered after Accept ran
// out of descriptors. The listener is level-triggered and would otherwise
// fire on every Wait.
const acceptPause = 250 * time.Millisecond

// Server owns the listening socket, the reactor and every live Connection.
type Server struct {
	cfg       *Config
	reactor   reactor.EventReactor
	listener  transport.Listener
	conns     map[reactor.Token]*Connection
	nextToken reactor.Token
	env       *connEnv
	onText    TextHandler
	logger    *log.Logger
	metrics   *control.MetricsRegistry
	probes    *control.Probes
	closed    bool

	// acceptResume is non-zero while the listener is unregistered.
	acceptResume time.Time
}

// NewServer binds the listener and creates the reactor. Failure of either is
// a startup error.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ln, err := transport.Listen(cfg.ListenAddr, cfg.Backlog)
	if err != nil {
		return nil, err
	}
	r, err := reactor.NewReactor()
	if err != nil {
		ln.Close()
		return nil, err
	}
	s, err := newServer(cfg, r, ln, opts...)
	if err != nil {
		r.Close()
		ln.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires a server around an existing reactor and listener.
func newServer(cfg *Config, r reactor.EventReactor, ln transport.Listener, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		reactor:  r,
		listener: ln,
		conns:    make(map[reactor.Token]*Connection),
		probes:   control.NewProbes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[wsloop] ", log.LstdFlags)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	if s.onText == nil {
		greeting := cfg.Greeting
		s.onText = func([]byte) *protocol.Frame { return protocol.Text(greeting) }
	}
	s.env = &connEnv{
		decoder:          protocol.Decoder{RequireMask: true, MaxPayload: cfg.MaxFramePayload},
		onText:           s.onText,
		validateUTF8:     cfg.ValidateUTF8,
		maxHandshakeSize: cfg.MaxHandshakeSize,
		readBuf:          make([]byte, cfg.ReadBufferSize),
		logger:           s.logger,
		metrics:          s.metrics,
	}

	// Level-triggered: one accept per event, the next pending client re-fires it.
	if err := r.Register(ln.Fd(), listenerToken, reactor.Readable, reactor.Level); err != nil {
		return nil, fmt.Errorf("register listener: %w", err)
	}

	s.probes.Register("listen", func() any { return s.listener.Addr() })
	s.probes.Register("connections", func() any { return len(s.conns) })
	s.probes.Register("next_token", func() any { return uint64(s.nextToken) })
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string { return s.listener.Addr() }

// Metrics returns the server counters.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics }

// Probes returns the debug probe registry.
func (s *Server) Probes() *control.Probes { return s.probes }

// ConnectionCount returns the number of live connections.
// Only safe to call from the loop goroutine or after Run returned.
func (s *Server) ConnectionCount() int { return len(s.conns) }

// HandleEvent routes one readiness event.
func (s *Server) HandleEvent(ev reactor.Event) {
	if ev.Token == listenerToken {
		// A paused listener may still have an event in the current batch.
		if ev.Readiness.IsReadable() && s.acceptResume.IsZero() {
			s.accept()
		}
		return
	}

	c, ok := s.conns[ev.Token]
	if !ok {
		panic(fmt.Sprintf("server: event for unknown connection %d", ev.Token))
	}

	if ev.Readiness.IsReadable() {
		c.OnReadable()
	}
	if ev.Readiness.IsWritable() && !c.Interest().IsHangup() {
		c.OnWritable()
	}
	if ev.Readiness.IsHangup() || c.Interest().IsHangup() {
		s.teardown(c)
		return
	}
	if err := s.reactor.Reregister(c.stream.Fd(), c.token, c.Interest(), clientOpts); err != nil {
		s.logger.Printf("conn %d: re-arm failed: %v", c.token, err)
		s.teardown(c)
	}
}

func (s *Server) accept() {
	st, err := s.listener.Accept()
	if err != nil {
		switch {
		case errors.Is(err, transport.ErrWouldBlock):
		case errors.Is(err, transport.ErrResourceExhausted):
			s.metrics.Add(control.ErrorsIO, 1)
			s.pauseAccept(err)
		default:
			s.metrics.Add(control.ErrorsIO, 1)
			s.logger.Printf("accept error: %v", err)
		}
		return
	}

	s.nextToken++
	tok := s.nextToken
	c := newConnection(tok, st, s.env)
	s.conns[tok] = c

	if err := s.reactor.Register(st.Fd(), tok, c.Interest(), clientOpts); err != nil {
		s.logger.Printf("conn %d: register failed: %v", tok, err)
		delete(s.conns, tok)
		st.Close()
		return
	}
	s.metrics.Add(control.ConnectionsAccepted, 1)
	s.metrics.Add(control.ConnectionsActive, 1)
	s.logger.Printf("conn %d: accepted from %s", tok, st.RemoteAddr())
}

func (s *Server) pauseAccept(cause error) {
	if err := s.reactor.Deregister(s.listener.Fd()); err != nil {
		s.logger.Printf("accept error: %v; deregister listener: %v", cause, err)
		return
	}
	s.acceptResume = time.Now().Add(acceptPause)
	s.logger.Printf("accept error: %v; pausing accepts for %s", cause, acceptPause)
}

// resumeAccept re-registers a paused listener once its pause has elapsed.
func (s *Server) resumeAccept(now time.Time) {
	if s.acceptResume.IsZero() || now.Before(s.acceptResume) {
		return
	}
	if err := s.reactor.Register(s.listener.Fd(), listenerToken, reactor.Readable, reactor.Level); err != nil {
		s.logger.Printf("re-register listener: %v", err)
		s.acceptResume = now.Add(acceptPause)
		return
	}
	s.acceptResume = time.Time{}
}

// teardown removes c from the table, deregisters it and releases the socket.
func (s *Server) teardown(c *Connection) {
	delete(s.conns, c.token)
	if err := s.reactor.Deregister(c.stream.Fd()); err != nil {
		s.logger.Printf("conn %d: deregister: %v", c.token, err)
	}
	if err := c.close(); err != nil {
		s.logger.Printf("conn %d: close: %v", c.token, err)
	}
	s.metrics.Add(control.ConnectionsActive, -1)
	s.metrics.Add(control.ConnectionsClosed, 1)
	s.logger.Printf("conn %d: closed in state %s", c.token, c.state)
}

// Close tears down every connection and releases the listener and reactor.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for _, c := range s.conns {
		s.teardown(c)
	}
	var errs []error
	if s.acceptResume.IsZero() {
		if err := s.reactor.Deregister(s.listener.Fd()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.listener.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}
	if err := s.reactor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reactor: %w", err))
	}
	return errors.Join(errs...)
}
