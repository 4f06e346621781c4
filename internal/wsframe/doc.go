// Package wsframe implements the WebSocket frame codec used by the streaming
// client.
//
// The codec is a set of pure functions over byte buffers. It performs no I/O
// and keeps no state beyond the buffer handed to it, which lets the transport
// feed it bytes as they arrive from the network in arbitrarily sized chunks.
//
// # Decoding
//
// Decode inspects the front of a growing FIFO buffer. When the buffer does not
// yet hold a complete frame (header plus the full declared payload) it returns
// a KindIncomplete frame and leaves the buffer untouched. A complete frame is
// removed from the front of the buffer and returned as either:
//
//   - KindText: opcode 0x1, payload validated as UTF-8
//   - KindClose: opcode 0x8, status code read from the first two payload bytes
//
// Any other opcode yields KindUnsupported together with ErrUnsupportedOpcode.
// The connection is considered corrupted at that point and no resync is
// attempted.
//
// Server frames are normally unmasked. Masked frames are unmasked transparently.
//
// # Encoding
//
// EncodeText always produces a single FIN text frame using the minimal length
// form:
//
//	0-125        length stored in the second header byte
//	126-65535    126 marker + 2-byte big-endian length
//	65536+       127 marker + 8-byte big-endian length
//
// Every outbound frame is masked with a fresh 4-byte key, as RFC 6455 requires
// for client-to-server traffic.
package wsframe
