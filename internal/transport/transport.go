// File: internal/transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-independent contracts for non-blocking stream sockets.
// Implementations never block: an operation that cannot make progress
// returns ErrWouldBlock and the caller waits for the next readiness event.

package transport

import "errors"

// ErrWouldBlock reports that a non-blocking operation cannot progress now.
var ErrWouldBlock = errors.New("transport: operation would block")

// ErrResourceExhausted reports that Accept failed for lack of descriptors or
// memory. The pending connection stays queued, so retrying at once fails again.
var ErrResourceExhausted = errors.New("transport: out of descriptors or memory")

// Stream is one accepted, non-blocking connection.
type Stream interface {
	// Fd returns the descriptor used for readiness registration.
	Fd() int
	// Read returns io.EOF when the peer closed its side.
	Read(p []byte) (int, error)
	// Write may write fewer bytes than len(p) before returning ErrWouldBlock.
	Write(p []byte) (int, error)
	// Shutdown shuts down both directions.
	Shutdown() error
	Close() error
	RemoteAddr() string
}

// Listener is a non-blocking listening socket.
type Listener interface {
	Fd() int
	// Accept returns ErrWouldBlock when no connection is pending.
	Accept() (Stream, error)
	Addr() string
	Close() error
}
