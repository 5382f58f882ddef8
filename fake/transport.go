// File: fake/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket and reactor contracts.

package fake

import (
	"fmt"
	"io"
	"sync"

	"github.com/momentics/hioload-wsloop/internal/transport"
)

// Stream is a fake non-blocking transport.Stream.
type Stream struct {
	mu       sync.Mutex
	fd       int
	inbound  []byte
	eof      bool
	written  []byte
	readErr  error
	writeErr error
	// writeBudget limits how many bytes Write accepts before would-block; <0 = unlimited.
	writeBudget int

	ShutdownCalls int
	Closed        bool
}

// NewStream creates a fake stream with the given descriptor number.
func NewStream(fd int) *Stream {
	return &Stream{fd: fd, writeBudget: -1}
}

// Feed makes data available to the next Read calls.
func (s *Stream) Feed(data []byte) {
	s.mu.Lock()
	s.inbound = append(s.inbound, data...)
	s.mu.Unlock()
}

// CloseRemote makes Read return io.EOF once buffered data is drained.
func (s *Stream) CloseRemote() {
	s.mu.Lock()
	s.eof = true
	s.mu.Unlock()
}

// FailReads makes every subsequent Read return err.
func (s *Stream) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailWrites makes every subsequent Write return err.
func (s *Stream) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// SetWriteBudget limits accepted bytes before Write reports would-block.
func (s *Stream) SetWriteBudget(n int) {
	s.mu.Lock()
	s.writeBudget = n
	s.mu.Unlock()
}

// Written returns and clears everything written so far.
func (s *Stream) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.written
	s.written = nil
	return out
}

func (s *Stream) Fd() int            { return s.fd }
func (s *Stream) RemoteAddr() string { return fmt.Sprintf("fake:%d", s.fd) }

// Read implements transport.Stream.Read.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.inbound) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		return 0, transport.ErrWouldBlock
	}
	n := copy(p, s.inbound)
	s.inbound = s.inbound[n:]
	return n, nil
}

// Write implements transport.Stream.Write.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if s.writeBudget >= 0 && n > s.writeBudget {
		n = s.writeBudget
	}
	s.written = append(s.written, p[:n]...)
	if s.writeBudget >= 0 {
		s.writeBudget -= n
	}
	if n < len(p) {
		return n, transport.ErrWouldBlock
	}
	return n, nil
}

func (s *Stream) Shutdown() error {
	s.mu.Lock()
	s.ShutdownCalls++
	s.mu.Unlock()
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.Closed = true
	s.mu.Unlock()
	return nil
}

// Listener is a fake transport.Listener handing out queued streams.
type Listener struct {
	mu        sync.Mutex
	pending   []*Stream
	closed    bool
	acceptErr error
}

// NewListener creates an empty fake listener.
func NewListener() *Listener {
	return &Listener{}
}

// Enqueue makes s available to the next Accept.
func (l *Listener) Enqueue(s *Stream) {
	l.mu.Lock()
	l.pending = append(l.pending, s)
	l.mu.Unlock()
}

// FailAccepts makes Accept return err until called again with nil.
func (l *Listener) FailAccepts(err error) {
	l.mu.Lock()
	l.acceptErr = err
	l.mu.Unlock()
}

func (l *Listener) Fd() int      { return 3 }
func (l *Listener) Addr() string { return "fake:listener" }

// Accept implements transport.Listener.Accept.
func (l *Listener) Accept() (transport.Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, io.ErrClosedPipe
	}
	if l.acceptErr != nil {
		return nil, l.acceptErr
	}
	if len(l.pending) == 0 {
		return nil, transport.ErrWouldBlock
	}
	s := l.pending[0]
	l.pending = l.pending[1:]
	return s, nil
}

func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}
