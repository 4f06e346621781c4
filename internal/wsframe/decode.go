package wsframe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Decode attempts to take one frame off the front of buf.
//
// If buf does not yet contain a whole frame, Decode returns a KindIncomplete
// frame and a nil error without touching buf. On KindText and KindClose the
// exact header+payload bytes are consumed. On error buf is left as it was.
func Decode(buf *bytes.Buffer) (Frame, error) {
	data := buf.Bytes()
	if len(data) < 2 {
		return Frame{Kind: KindIncomplete}, nil
	}

	frame := Frame{
		FIN:    data[0]&0x80 != 0,
		Opcode: data[0] & 0x0F,
		Masked: data[1]&0x80 != 0,
	}

	if frame.Opcode != OpcodeText && frame.Opcode != OpcodeClose {
		frame.Kind = KindUnsupported
		return frame, fmt.Errorf("%w: %s", ErrUnsupportedOpcode, frame.OpcodeString())
	}

	offset := 2
	switch n := data[1] & 0x7F; n {
	case 126:
		if len(data) < offset+2 {
			return Frame{Kind: KindIncomplete}, nil
		}
		frame.Length = uint64(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
	case 127:
		if len(data) < offset+8 {
			return Frame{Kind: KindIncomplete}, nil
		}
		frame.Length = binary.BigEndian.Uint64(data[offset:])
		offset += 8
		// The most significant bit must be zero (RFC 6455 5.2).
		if frame.Length&(1<<63) != 0 {
			return frame, fmt.Errorf("%w: %d", ErrFrameTooLarge, frame.Length)
		}
	default:
		frame.Length = uint64(n)
	}

	var maskKey [4]byte
	if frame.Masked {
		if len(data) < offset+4 {
			return Frame{Kind: KindIncomplete}, nil
		}
		copy(maskKey[:], data[offset:offset+4])
		offset += 4
	}

	if frame.Length > uint64(math.MaxInt-offset) {
		return frame, fmt.Errorf("%w: %d", ErrFrameTooLarge, frame.Length)
	}
	total := offset + int(frame.Length)
	if len(data) < total {
		return Frame{Kind: KindIncomplete}, nil
	}

	payload := data[offset:total]
	if frame.Masked {
		payload = unmaskPayload(payload, maskKey)
	} else {
		payload = bytes.Clone(payload)
	}

	switch frame.Opcode {
	case OpcodeText:
		if !utf8.Valid(payload) {
			return frame, ErrInvalidUTF8
		}
		frame.Kind = KindText
	case OpcodeClose:
		frame.Kind = KindClose
		frame.CloseCode = CloseNoStatus
		if len(payload) >= 2 {
			frame.CloseCode = binary.BigEndian.Uint16(payload)
		}
	}

	if payload == nil {
		payload = []byte{}
	}
	frame.Payload = payload
	frame.Consumed = total
	buf.Next(total)
	return frame, nil
}
