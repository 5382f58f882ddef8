// File: control/probes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named state probes used to dump server internals to the log.

package control

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Probes holds registered probe functions.
type Probes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewProbes creates a probe registry.
func NewProbes() *Probes {
	return &Probes{
		probes: make(map[string]func() any),
	}
}

// Register inserts or replaces a named probe.
func (p *Probes) Register(name string, fn func() any) {
	p.mu.Lock()
	p.probes[name] = fn
	p.mu.Unlock()
}

// DumpState returns the output of all probes.
func (p *Probes) DumpState() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.probes))
	for k, fn := range p.probes {
		out[k] = fn()
	}
	return out
}

// String renders the dump as sorted name=value pairs.
func (p *Probes) String() string {
	state := p.DumpState()
	names := make([]string, 0, len(state))
	for k := range state {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, state[k])
	}
	return b.String()
}
