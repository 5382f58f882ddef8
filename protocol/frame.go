// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame model, opcodes and the pure construction helpers the server uses to
// build replies.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// OpCode is the 4-bit frame type tag.
type OpCode byte

const (
	OpContinuation OpCode = 0x0
	OpText         OpCode = 0x1
	OpBinary       OpCode = 0x2
	OpClose        OpCode = 0x8
	OpPing         OpCode = 0x9
	OpPong         OpCode = 0xA
)

// Valid reports whether op is one of the opcodes defined by RFC 6455.
func (op OpCode) Valid() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	}
	return false
}

// IsControl reports whether op is Close, Ping or Pong.
func (op OpCode) IsControl() bool {
	return op&0x8 != 0
}

func (op OpCode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(0x%x)", byte(op))
}

// Frame represents a single WebSocket frame.
type Frame struct {
	Fin     bool    // FIN bit
	OpCode  OpCode  // Operation code
	Masked  bool    // Set only on decoded client frames
	MaskKey [4]byte // Valid when Masked
	Payload []byte  // Unmasked application data
}

// IsClose reports whether f is a Close frame.
func (f *Frame) IsClose() bool {
	return f.OpCode == OpClose
}

// IsControl reports whether f is a control frame.
func (f *Frame) IsControl() bool {
	return f.OpCode.IsControl()
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame{fin=%t op=%s masked=%t len=%d}", f.Fin, f.OpCode, f.Masked, len(f.Payload))
}

// Text builds a final Text frame.
func Text(payload string) *Frame {
	return &Frame{Fin: true, OpCode: OpText, Payload: []byte(payload)}
}

// Binary builds a final Binary frame.
func Binary(payload []byte) *Frame {
	return &Frame{Fin: true, OpCode: OpBinary, Payload: payload}
}

// NewControl builds a control frame, rejecting payloads over 125 bytes.
func NewControl(op OpCode, payload []byte) (*Frame, error) {
	if !op.IsControl() || !op.Valid() {
		return nil, ErrNotControl
	}
	if len(payload) > MaxControlPayloadLen {
		return nil, ErrControlTooLong
	}
	return &Frame{Fin: true, OpCode: op, Payload: payload}, nil
}

// Pong answers a Ping with the same payload.
func Pong(ping *Frame) *Frame {
	return &Frame{Fin: true, OpCode: OpPong, Payload: clonePayload(ping.Payload)}
}

// CloseEcho answers a peer Close frame by echoing its status code and reason.
func CloseEcho(req *Frame) *Frame {
	return &Frame{Fin: true, OpCode: OpClose, Payload: clonePayload(req.Payload)}
}

// CloseFrame builds a Close frame carrying code and an optional reason.
func CloseFrame(code uint16, reason string) (*Frame, error) {
	if code < 1000 || code == CloseNoStatusRcvd || code == CloseAbnormalClosure || code >= 5000 {
		return nil, ErrInvalidCloseCode
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	copy(payload[2:], reason)
	return NewControl(OpClose, payload)
}

// CloseStatus extracts the status code and reason from a Close payload.
// ok is false when the payload carries no status code.
func CloseStatus(payload []byte) (code uint16, reason string, ok bool) {
	if len(payload) < 2 {
		return 0, "", false
	}
	return binary.BigEndian.Uint16(payload), string(payload[2:]), true
}

func clonePayload(p []byte) []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
