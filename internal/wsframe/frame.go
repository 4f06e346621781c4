package wsframe

import (
	"errors"
	"fmt"
)

// WebSocket frame opcodes
const (
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA
)

// Close status codes
const (
	CloseNormal   uint16 = 1000
	CloseNoStatus uint16 = 1005
)

// Decode errors. All of them are fatal for the connection.
var (
	ErrUnsupportedOpcode = errors.New("wsframe: unsupported opcode")
	ErrInvalidUTF8       = errors.New("wsframe: text payload is not valid UTF-8")
	ErrFrameTooLarge     = errors.New("wsframe: declared payload length exceeds addressable size")
)

// Kind is the outcome of a decode attempt.
type Kind int

const (
	KindIncomplete Kind = iota
	KindText
	KindClose
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindIncomplete:
		return "incomplete"
	case KindText:
		return "text"
	case KindClose:
		return "close"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Frame is a decoded WebSocket frame.
type Frame struct {
	Kind      Kind
	FIN       bool
	Opcode    byte
	Masked    bool
	Length    uint64
	Payload   []byte
	CloseCode uint16 // only set for KindClose
	Consumed  int    // bytes removed from the buffer
}

// Text returns the payload as a string.
func (f Frame) Text() string {
	return string(f.Payload)
}

// OpcodeString returns a human-readable opcode name
func (f Frame) OpcodeString() string {
	return OpcodeName(f.Opcode)
}

// String returns a debug representation of the frame
func (f Frame) String() string {
	return fmt.Sprintf("Frame{Kind=%s, FIN=%v, Opcode=%s, Masked=%v, Length=%d}",
		f.Kind, f.FIN, f.OpcodeString(), f.Masked, f.Length)
}

// OpcodeName returns a human-readable name for a raw opcode.
func OpcodeName(opcode byte) string {
	switch opcode {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return fmt.Sprintf("unknown(0x%X)", opcode)
	}
}

// unmaskPayload applies XOR mask to payload (WebSocket unmasking algorithm).
// The same operation masks outbound payloads.
func unmaskPayload(payload []byte, maskKey [4]byte) []byte {
	unmasked := make([]byte, len(payload))
	for i := 0; i < len(payload); i++ {
		unmasked[i] = payload[i] ^ maskKey[i%4]
	}
	return unmasked
}
