// File: server/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "fmt"

// State is the per-connection protocol phase.
type State int

const (
	// AwaitingHandshake reads the HTTP upgrade request.
	AwaitingHandshake State = iota
	// HandshakeResponsePending waits for writability to send the 101 response.
	HandshakeResponsePending
	// Connected exchanges frames.
	Connected
	// Closing has queued a Close frame; inbound data is discarded.
	Closing
)

func (s State) String() string {
	switch s {
	case AwaitingHandshake:
		return "awaiting-handshake"
	case HandshakeResponsePending:
		return "handshake-response-pending"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
