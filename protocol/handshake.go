// File: protocol/handshake.go
// Package protocol implements the server side of the WebSocket handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HeaderCollector receives header tokens from a push-style HTTP tokenizer,
// ComputeAcceptKey derives Sec-WebSocket-Accept and BuildHandshakeResponse
// serializes the 101 Switching Protocols reply.

package protocol

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/textproto"
	"strings"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
)

// Errors for handshake validation.
var (
	ErrMissingWebSocketKey   = errors.New("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = errors.New("unsupported WebSocket version; only '13' is supported")
	ErrDuplicateWebSocketKey = errors.New("repeated Sec-WebSocket-Key header")
)

// HeaderCollector stores header field/value pairs reported by the tokenizer.
// It borrows Headers from its owner for the duration of one parse call.
type HeaderCollector struct {
	Headers map[string]string
	pending string
}

// OnHeaderField remembers the field name the next value belongs to.
func (hc *HeaderCollector) OnHeaderField(name []byte) bool {
	hc.pending = textproto.CanonicalMIMEHeaderKey(string(name))
	return true
}

// OnHeaderValue records the value under the pending field name.
func (hc *HeaderCollector) OnHeaderValue(value []byte) bool {
	if prev, ok := hc.Headers[hc.pending]; ok && prev != "" {
		// Repeated fields fold into a comma-separated list.
		hc.Headers[hc.pending] = prev + ", " + string(value)
		return true
	}
	hc.Headers[hc.pending] = string(value)
	return true
}

// OnHeadersComplete stops the tokenizer: the handshake needs no body.
func (hc *HeaderCollector) OnHeadersComplete() bool {
	return false
}

// Header looks up a header by name in canonical form.
func Header(headers map[string]string, name string) string {
	return headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// ValidateUpgradeHeaders checks the headers needed to answer the upgrade.
func ValidateUpgradeHeaders(headers map[string]string) error {
	key := Header(headers, HeaderSecWebSocketKey)
	if key == "" {
		return ErrMissingWebSocketKey
	}
	// Repeated fields are folded with ", "; base64 never contains a comma.
	if strings.Contains(key, ",") {
		return ErrDuplicateWebSocketKey
	}
	if v, ok := headers[textproto.CanonicalMIMEHeaderKey(HeaderSecWebSocketVer)]; ok && v != RequiredWebSocketVersion {
		return ErrBadWebSocketVersion
	}
	return nil
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
// This implements the algorithm specified in RFC6455 Section 1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// BuildHandshakeResponse returns the 101 Switching Protocols response bytes.
func BuildHandshakeResponse(accept string) []byte {
	b := make([]byte, 0, 128)
	b = append(b, "HTTP/1.1 101 Switching Protocols\r\n"...)
	b = append(b, HeaderConnection+": Upgrade\r\n"...)
	b = append(b, HeaderUpgrade+": websocket\r\n"...)
	b = append(b, HeaderSecWebSocketAccept+": "...)
	b = append(b, accept...)
	b = append(b, "\r\n\r\n"...)
	return b
}
