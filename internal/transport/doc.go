// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP sockets for the readiness-driven server.
// Linux uses raw descriptors through golang.org/x/sys/unix so they can be
// registered with the epoll reactor directly; other platforms get a stub.

package transport
