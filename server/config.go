// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration: defaults, YAML loading and validation.

package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-wsloop/internal/httpparse"
	"github.com/momentics/hioload-wsloop/protocol"
)

// DefaultListenAddr is the bind address used when none is configured.
const DefaultListenAddr = "0.0.0.0:10000"

// DefaultGreeting is the acknowledgement sent for every Text frame.
const DefaultGreeting = "Hi there!!"

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr       string        `yaml:"listen_addr"`        // TCP bind address, e.g. "0.0.0.0:10000"
	Backlog          int           `yaml:"backlog"`            // listen(2) backlog
	ReadBufferSize   int           `yaml:"read_buffer_size"`   // per-read scratch size
	MaxEvents        int           `yaml:"max_events"`         // events fetched per Wait
	PollTimeout      time.Duration `yaml:"poll_timeout"`       // Wait timeout; bounds shutdown latency
	MaxFramePayload  int64         `yaml:"max_frame_payload"`  // largest accepted client payload
	MaxHandshakeSize int           `yaml:"max_handshake_size"` // largest accepted request head
	Greeting         string        `yaml:"greeting"`           // default Text acknowledgement
	ValidateUTF8     bool          `yaml:"validate_utf8"`      // reject non-UTF-8 Text frames with 1007
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       DefaultListenAddr,
		Backlog:          1024,
		ReadBufferSize:   2048,
		MaxEvents:        128,
		PollTimeout:      100 * time.Millisecond,
		MaxFramePayload:  protocol.MaxFramePayload,
		MaxHandshakeSize: httpparse.DefaultMaxHeaderBytes,
		Greeting:         DefaultGreeting,
		ValidateUTF8:     true,
	}
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}
	if c.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("read_buffer_size must be positive, got %d", c.ReadBufferSize))
	}
	if c.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("max_events must be positive, got %d", c.MaxEvents))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("poll_timeout must be positive, got %s", c.PollTimeout))
	}
	if c.MaxFramePayload <= 0 {
		errs = append(errs, fmt.Errorf("max_frame_payload must be positive, got %d", c.MaxFramePayload))
	}
	if c.MaxHandshakeSize <= 0 {
		errs = append(errs, fmt.Errorf("max_handshake_size must be positive, got %d", c.MaxHandshakeSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
