// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime counters for the dispatch loop.
// The loop is single-threaded but snapshots may be taken from any goroutine,
// so updates go through a mutex.

package control

import (
	"sync"
	"time"
)

// Well-known counter names maintained by the server.
const (
	ConnectionsAccepted = "connections.accepted"
	ConnectionsActive   = "connections.active"
	ConnectionsClosed   = "connections.closed"
	HandshakesCompleted = "handshakes.completed"
	FramesReceived      = "frames.received"
	FramesSent          = "frames.sent"
	ErrorsDecode        = "errors.decode"
	ErrorsIO            = "errors.io"
	ErrorsHandshake     = "errors.handshake"
)

// MetricsRegistry holds named int64 counters.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]int64),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value int64) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments key by delta and returns the new value.
func (mr *MetricsRegistry) Add(key string, delta int64) int64 {
	mr.mu.Lock()
	v := mr.metrics[key] + delta
	mr.metrics[key] = v
	mr.updated = time.Now()
	mr.mu.Unlock()
	return v
}

// Get returns the current value of key.
func (mr *MetricsRegistry) Get(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.metrics[key]
}

// GetSnapshot returns a copy of all counters.
func (mr *MetricsRegistry) GetSnapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last change.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
