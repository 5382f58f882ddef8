// File: protocol/frame_codec.go
// Package protocol implements the frame codec with frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Decoding works on an accumulated byte buffer and never reads past it:
// a short buffer yields ErrIncomplete so the caller can wait for more bytes.
// Encoding always produces unmasked server-to-client frames unless the
// masked variant is requested explicitly.

package protocol

import (
	"encoding/binary"
	"math"
)

// Decoder decodes frames from a byte buffer.
type Decoder struct {
	// RequireMask rejects unmasked frames (client-to-server direction).
	RequireMask bool
	// MaxPayload caps the declared payload length. Zero means no cap.
	MaxPayload int64
}

// clientDecoder is the decoder used for frames arriving from peers.
var clientDecoder = Decoder{RequireMask: true, MaxPayload: MaxFramePayload}

// DecodeFrame decodes one client-to-server frame from raw.
// Returns frame, consumed bytes, and error.
func DecodeFrame(raw []byte) (*Frame, int, error) {
	return clientDecoder.Decode(raw)
}

// Decode parses one frame from the front of raw.
// If the frame is incomplete, it returns (nil, 0, ErrIncomplete).
func (d Decoder) Decode(raw []byte) (*Frame, int, error) {
	if len(raw) < 2 {
		return nil, 0, ErrIncomplete
	}
	b0, b1 := raw[0], raw[1]
	if b0&RsvBits != 0 {
		return nil, 0, &DecodeError{Kind: KindReservedBits}
	}
	fin := b0&FinBit != 0
	op := OpCode(b0 & OpCodeMask)
	if !op.Valid() {
		return nil, 0, &DecodeError{Kind: KindUnknownOpCode, OpCode: op}
	}
	masked := b1&MaskBit != 0
	if d.RequireMask && !masked {
		return nil, 0, &DecodeError{Kind: KindUnmasked, OpCode: op}
	}
	if op.IsControl() && !fin {
		return nil, 0, &DecodeError{Kind: KindFragmentedControl, OpCode: op}
	}

	length := uint64(b1 & PayloadMask)
	offset := 2
	switch length {
	case len16Marker:
		if len(raw) < offset+2 {
			return nil, 0, d.incomplete(op, length)
		}
		length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case len64Marker:
		if len(raw) < offset+8 {
			return nil, 0, d.incomplete(op, length)
		}
		length = binary.BigEndian.Uint64(raw[offset:])
		offset += 8
		if length > math.MaxInt64 {
			return nil, 0, &DecodeError{Kind: KindPayloadTooLarge, OpCode: op, Length: length}
		}
	}

	if op.IsControl() {
		if length > MaxControlPayloadLen {
			return nil, 0, &DecodeError{Kind: KindControlTooLong, OpCode: op, Length: length}
		}
		if op == OpClose && length == 1 {
			return nil, 0, &DecodeError{Kind: KindInvalidClosePayload, OpCode: op, Length: length}
		}
	}
	if d.MaxPayload > 0 && length > uint64(d.MaxPayload) {
		return nil, 0, &DecodeError{Kind: KindPayloadTooLarge, OpCode: op, Length: length}
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, ErrIncomplete
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	if uint64(len(raw)-offset) < length {
		return nil, 0, ErrIncomplete
	}
	total := offset + int(length)

	payload := make([]byte, length)
	copy(payload, raw[offset:total])
	if masked {
		Mask(payload, maskKey)
	}

	return &Frame{
		Fin:     fin,
		OpCode:  op,
		Masked:  masked,
		MaskKey: maskKey,
		Payload: payload,
	}, total, nil
}

// incomplete reports a short extended-length field. Control frames never use
// extended lengths, so for them the 7-bit marker alone is already a violation.
func (d Decoder) incomplete(op OpCode, marker uint64) error {
	if op.IsControl() {
		return &DecodeError{Kind: KindControlTooLong, OpCode: op, Length: marker}
	}
	return ErrIncomplete
}

// EncodeFrame serializes f into a new slice with the mask bit clear.
func EncodeFrame(f *Frame) ([]byte, error) {
	return AppendFrame(nil, f)
}

// AppendFrame appends the unmasked wire form of f to dst.
func AppendFrame(dst []byte, f *Frame) ([]byte, error) {
	dst, err := appendHeader(dst, f, false)
	if err != nil {
		return dst, err
	}
	return append(dst, f.Payload...), nil
}

// AppendMaskedFrame appends the client-to-server wire form of f, masked with key.
// f.Payload is left untouched.
func AppendMaskedFrame(dst []byte, f *Frame, key [4]byte) ([]byte, error) {
	dst, err := appendHeader(dst, f, true)
	if err != nil {
		return dst, err
	}
	dst = append(dst, key[:]...)
	start := len(dst)
	dst = append(dst, f.Payload...)
	Mask(dst[start:], key)
	return dst, nil
}

func appendHeader(dst []byte, f *Frame, mask bool) ([]byte, error) {
	plen := len(f.Payload)
	if f.OpCode.IsControl() && plen > MaxControlPayloadLen {
		return dst, ErrControlTooLong
	}

	var b0 byte
	if f.Fin {
		b0 = FinBit
	}
	b0 |= byte(f.OpCode) & OpCodeMask

	var maskBit byte
	if mask {
		maskBit = MaskBit
	}

	switch {
	case plen <= MaxControlPayloadLen:
		dst = append(dst, b0, byte(plen)|maskBit)
	case plen <= math.MaxUint16:
		dst = append(dst, b0, len16Marker|maskBit, 0, 0)
		binary.BigEndian.PutUint16(dst[len(dst)-2:], uint16(plen))
	default:
		dst = append(dst, b0, len64Marker|maskBit, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(dst[len(dst)-8:], uint64(plen))
	}
	return dst, nil
}

// Mask XORs b in place with key. Applying it twice restores the input.
func Mask(b []byte, key [4]byte) {
	for i := range b {
		b[i] ^= key[i&3]
	}
}
