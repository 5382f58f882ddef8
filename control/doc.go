// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the hioload-wsloop server.
//
// Provides concurrent-safe primitives:
//   - Named int64 counters with snapshot reads
//   - State probes rendered for operator logs
package control
