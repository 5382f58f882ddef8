// File: fake/fakereactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Recording reactor: remembers registrations and replays pushed events.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-wsloop/reactor"
)

// Registration is the last interest recorded for a descriptor.
type Registration struct {
	Token    reactor.Token
	Interest reactor.Interest
	Opts     reactor.PollOpt
}

// Reactor is a recording reactor.EventReactor for tests.
type Reactor struct {
	mu     sync.Mutex
	regs   map[int]Registration
	queued []reactor.Event
	closed bool

	RegisterCalls   int
	ReregisterCalls int
	DeregisterCalls int
}

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{regs: make(map[int]Registration)}
}

// Push queues an event for the next Wait.
func (r *Reactor) Push(ev reactor.Event) {
	r.mu.Lock()
	r.queued = append(r.queued, ev)
	r.mu.Unlock()
}

// Registration returns the current registration for fd.
func (r *Reactor) Registration(fd int) (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[fd]
	return reg, ok
}

func (r *Reactor) Register(fd int, tok reactor.Token, interest reactor.Interest, opts reactor.PollOpt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RegisterCalls++
	r.regs[fd] = Registration{Token: tok, Interest: interest, Opts: opts}
	return nil
}

func (r *Reactor) Reregister(fd int, tok reactor.Token, interest reactor.Interest, opts reactor.PollOpt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReregisterCalls++
	r.regs[fd] = Registration{Token: tok, Interest: interest, Opts: opts}
	return nil
}

func (r *Reactor) Deregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeregisterCalls++
	delete(r.regs, fd)
	return nil
}

// Wait drains queued events; with none queued it sleeps briefly so loops
// driven by it do not spin.
func (r *Reactor) Wait(events []reactor.Event, timeout time.Duration) (int, error) {
	r.mu.Lock()
	n := copy(events, r.queued)
	r.queued = r.queued[n:]
	r.mu.Unlock()
	if n == 0 && timeout > 0 {
		time.Sleep(time.Millisecond)
	}
	return n, nil
}

func (r *Reactor) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
