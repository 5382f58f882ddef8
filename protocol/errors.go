// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error kinds reported by the frame codec and the handshake processor.

package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete reports that the buffer ends before a whole frame is present.
// It is not a failure: the caller keeps the bytes and waits for more.
var ErrIncomplete = errors.New("incomplete frame")

// Errors for frame construction and encoding.
var (
	ErrControlTooLong   = errors.New("control frame payload exceeds 125 bytes")
	ErrNotControl       = errors.New("opcode is not a control opcode")
	ErrPayloadTooLarge  = errors.New("frame payload exceeds maximum allowed size")
	ErrInvalidCloseCode = errors.New("invalid close status code")
)

// DecodeErrorKind classifies malformed frames.
type DecodeErrorKind int

const (
	KindReservedBits DecodeErrorKind = iota + 1
	KindUnknownOpCode
	KindControlTooLong
	KindFragmentedControl
	KindUnmasked
	KindInvalidClosePayload
	KindPayloadTooLarge
)

var kindNames = map[DecodeErrorKind]string{
	KindReservedBits:        "reserved bits set",
	KindUnknownOpCode:       "unknown opcode",
	KindControlTooLong:      "control frame payload too long",
	KindFragmentedControl:   "fragmented control frame",
	KindUnmasked:            "unmasked client frame",
	KindInvalidClosePayload: "invalid close payload",
	KindPayloadTooLarge:     "payload too large",
}

func (k DecodeErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// CloseCode returns the close status the server sends back for this kind.
func (k DecodeErrorKind) CloseCode() uint16 {
	if k == KindPayloadTooLarge {
		return CloseMessageTooBig
	}
	return CloseProtocolError
}

// DecodeError is a protocol violation found while decoding a frame.
type DecodeError struct {
	Kind   DecodeErrorKind
	OpCode OpCode
	Length uint64
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindUnknownOpCode:
		return fmt.Sprintf("decode frame: %s 0x%x", e.Kind, byte(e.OpCode))
	case KindControlTooLong, KindPayloadTooLarge:
		return fmt.Sprintf("decode frame: %s (%d bytes)", e.Kind, e.Length)
	}
	return "decode frame: " + e.Kind.String()
}

// AsDecodeError unwraps err into a *DecodeError if it is one.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
