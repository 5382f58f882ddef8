// File: server/run.go
// Package server implements the dispatch loop: wait for readiness, route each
// event, repeat until the context is cancelled, then tear everything down.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/momentics/hioload-wsloop/reactor"
)

// Run drives the server on the calling goroutine and blocks until ctx is
// cancelled or the reactor fails. The server is closed on return.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("listening on %s", s.Addr())
	events := make([]reactor.Event, s.cfg.MaxEvents)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("shutting down: %s", s.probes)
			return s.Close()
		default:
		}

		s.resumeAccept(time.Now())
		n, err := s.reactor.Wait(events, s.cfg.PollTimeout)
		if err != nil {
			s.Close()
			return fmt.Errorf("reactor wait: %w", err)
		}
		for i := 0; i < n; i++ {
			s.HandleEvent(events[i])
		}
	}
}
