// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral readiness reactor interface: register, re-arm and
// deregister descriptors, then wait for readiness events keyed by Token.

package reactor

import (
	"strings"
	"time"
)

// Token identifies a registered descriptor in delivered events.
type Token uint64

// Interest is a readiness set. It is used both as a subscription and as the
// readiness reported by an Event.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
	// Hangup is always reported by the OS; as a subscription it carries no
	// poller flags and marks the owner's request for teardown.
	Hangup
)

func (i Interest) IsReadable() bool { return i&Readable != 0 }
func (i Interest) IsWritable() bool { return i&Writable != 0 }
func (i Interest) IsHangup() bool   { return i&Hangup != 0 }

func (i Interest) String() string {
	if i == 0 {
		return "none"
	}
	var parts []string
	if i.IsReadable() {
		parts = append(parts, "readable")
	}
	if i.IsWritable() {
		parts = append(parts, "writable")
	}
	if i.IsHangup() {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}

// PollOpt selects the delivery discipline for a registration.
type PollOpt uint8

const (
	// Level delivers an event for as long as the descriptor stays ready.
	Level PollOpt = 0
	// Edge delivers an event only on readiness transitions.
	Edge PollOpt = 1 << iota
	// Oneshot disables the registration after one event until Reregister.
	Oneshot
)

// Event contains readiness information returned by Wait.
type Event struct {
	Token     Token
	Readiness Interest
}

// EventReactor defines the readiness poller operations.
type EventReactor interface {
	// Register adds fd with the given interest and delivery options.
	Register(fd int, tok Token, interest Interest, opts PollOpt) error

	// Reregister replaces the interest of an existing registration and re-arms
	// a one-shot registration.
	Reregister(fd int, tok Token, interest Interest, opts PollOpt) error

	// Deregister removes fd.
	Deregister(fd int) error

	// Wait blocks up to timeout (negative: forever) and writes ready events into
	// events. Returns number of events written or an error.
	Wait(events []Event, timeout time.Duration) (n int, err error)

	// Close cleans up resources.
	Close() error
}
