// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor abstraction used by the
// dispatch loop, with an epoll implementation for Linux. Registrations may be
// edge-triggered and one-shot: a one-shot descriptor is silent after its first
// event until it is re-armed with Reregister.
package reactor
