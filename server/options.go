// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/momentics/hioload-wsloop/control"
	"github.com/momentics/hioload-wsloop/protocol"
)

// TextHandler produces the reply for a received Text payload.
// Returning nil queues nothing.
type TextHandler func(payload []byte) *protocol.Frame

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger replaces the default stdout logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithTextHandler overrides the fixed acknowledgement for Text frames.
func WithTextHandler(h TextHandler) ServerOption {
	return func(s *Server) {
		s.onText = h
	}
}

// WithMetrics shares an existing metrics registry.
func WithMetrics(m *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}
