//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// linuxReactor is an epoll-based event reactor.
type linuxReactor struct {
	epfd int
	raw  []unix.EpollEvent
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &linuxReactor{epfd: epfd}, nil
}

// epollEvent translates an interest set into an epoll registration.
// The token travels in the epoll_data union (Fd and Pad are contiguous).
func epollEvent(tok Token, interest Interest, opts PollOpt) *unix.EpollEvent {
	var events uint32
	if interest.IsReadable() {
		events |= unix.EPOLLIN
	}
	if interest.IsWritable() {
		events |= unix.EPOLLOUT
	}
	if opts&Edge != 0 {
		events |= unix.EPOLLET
	}
	if opts&Oneshot != 0 {
		events |= unix.EPOLLONESHOT
	}
	return &unix.EpollEvent{
		Events: events,
		Fd:     int32(uint32(tok)),
		Pad:    int32(uint32(tok >> 32)),
	}
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd int, tok Token, interest Interest, opts PollOpt) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, epollEvent(tok, interest, opts)); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Reregister modifies an existing registration, re-arming one-shot delivery.
func (r *linuxReactor) Reregister(fd int, tok Token, interest Interest, opts PollOpt) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, epollEvent(tok, interest, opts)); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Deregister removes a file descriptor from the epoll watch list.
func (r *linuxReactor) Deregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait waits for epoll events and fills the result into events slice.
func (r *linuxReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]

	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(r.epfd, raw, msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := raw[i]
		var ready Interest
		if ev.Events&unix.EPOLLIN != 0 {
			ready |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			ready |= Writable
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ready |= Hangup
		}
		events[i] = Event{
			Token:     Token(uint32(ev.Fd)) | Token(uint32(ev.Pad))<<32,
			Readiness: ready,
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
