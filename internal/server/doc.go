// Package server implements a replay gateway: a WebSocket server that plays a
// payload capture back to a client.
//
// It speaks the server side of the same wire the streaming client speaks. It
// accepts plain TCP or TLS, answers the HTTP/1.1 Upgrade request and then
// sends every inbound payload of a capture as an unmasked text frame. The
// original spacing between payloads is kept, scaled by Config.Speed. Frames
// the client sends back are decoded and can be written to a capture of their
// own.
//
// # Handshake
//
// The 101 response carries Sec-WebSocket-Accept computed from the client key:
//
//	HTTP/1.1 101 Switching Protocols\r\n
//	Upgrade: websocket\r\n
//	Connection: Upgrade\r\n
//	Sec-WebSocket-Accept: <accept>\r\n
//	\r\n
//
// # TLS
//
// With TLS enabled and no certificate configured, a self-signed certificate
// for localhost is generated in memory at startup. Clients have to skip
// verification or trust that certificate.
//
// # End of replay
//
// After the last payload the server sends a close frame with code 1000 and
// waits up to Config.CloseTimeout for the client to echo it. A client that
// closes first gets its own code echoed back.
package server
