// File: protocol/constants.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket wire protocol constants

package protocol

const (
	// Frame limit settings
	MaxControlPayloadLen = 125
	MaxFrameHeaderLen    = 14 // for extended payloads with masking

	// Bit masks
	FinBit      = 0x80
	MaskBit     = 0x80
	RsvBits     = 0x70
	OpCodeMask  = 0x0F
	PayloadMask = 0x7F

	// Length field markers
	len16Marker = 126
	len64Marker = 127

	// Close codes
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseNoStatusRcvd       = 1005
	CloseAbnormalClosure    = 1006
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseMissingExtension   = 1010
	CloseInternalServerErr  = 1011
)

// MaxFramePayload defines the default maximum payload size accepted for a single frame.
const MaxFramePayload = 1 << 20 // 1 MiB
