// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the WebSocket wire protocol (RFC 6455) for hioload-wsloop.
//
// Includes:
//   - Frame decoding from accumulated byte buffers with explicit
//     incomplete/invalid reporting
//   - Frame encoding with the shortest length representation
//   - Masking helpers and control-frame construction (Pong, Close echo)
//   - Handshake header collection, accept token and 101 response serialization
//
// Nothing in this package performs IO; callers own sockets and buffers.
package protocol
