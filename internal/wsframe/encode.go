package wsframe

import (
	"encoding/binary"
	"math/rand/v2"
	"unicode/utf8"
)

// EncodeText builds a single masked FIN text frame carrying text.
func EncodeText(text string) ([]byte, error) {
	return EncodeTextWithMask(text, newMaskKey())
}

// EncodeTextWithMask is EncodeText with a caller-chosen mask key.
func EncodeTextWithMask(text string, maskKey [4]byte) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	return encode(OpcodeText, []byte(text), &maskKey), nil
}

// EncodeServerText builds an unmasked FIN text frame, the form a server
// sends to its clients.
func EncodeServerText(text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	return encode(OpcodeText, []byte(text), nil), nil
}

// EncodeClose builds a masked close frame carrying a status code.
func EncodeClose(code uint16) []byte {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, code)
	key := newMaskKey()
	return encode(OpcodeClose, payload, &key)
}

// EncodeServerClose builds an unmasked close frame carrying a status code.
func EncodeServerClose(code uint16) []byte {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, code)
	return encode(OpcodeClose, payload, nil)
}

// HeaderLen returns the size of a masked frame header for a payload of n
// bytes, using the minimal length form.
func HeaderLen(n int) int {
	switch {
	case n < 126:
		return 2 + 4
	case n < 65536:
		return 4 + 4
	default:
		return 10 + 4
	}
}

// encode builds a FIN frame. A nil maskKey leaves the payload unmasked.
func encode(opcode byte, payload []byte, maskKey *[4]byte) []byte {
	length := len(payload)
	frame := make([]byte, 0, HeaderLen(length)+length)

	// FIN + opcode
	frame = append(frame, 0x80|opcode)

	var maskBit byte
	if maskKey != nil {
		maskBit = 0x80
	}

	// Mask bit + payload length
	switch {
	case length < 126:
		frame = append(frame, maskBit|byte(length))
	case length < 65536:
		frame = append(frame, maskBit|126)
		frame = binary.BigEndian.AppendUint16(frame, uint16(length))
	default:
		frame = append(frame, maskBit|127)
		frame = binary.BigEndian.AppendUint64(frame, uint64(length))
	}

	if maskKey == nil {
		return append(frame, payload...)
	}
	frame = append(frame, maskKey[:]...)
	return append(frame, unmaskPayload(payload, *maskKey)...)
}

// newMaskKey returns a fresh mask key. Masking is a wire-format requirement
// here, so a non-cryptographic source is enough.
func newMaskKey() [4]byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], rand.Uint32())
	return key
}
