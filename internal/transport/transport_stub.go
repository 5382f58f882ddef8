//go:build !linux
// +build !linux

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "errors"

// Listen returns an error for unsupported platforms.
func Listen(addr string, backlog int) (Listener, error) {
	return nil, errors.New("transport: this platform is not supported")
}
