// Package transport owns the upgraded WebSocket byte stream of a tvstream
// session.
//
// Dial opens the stream: TCP connect, optional TLS (SNI set to the endpoint
// host, TLS 1.2 or newer) and a hand-written HTTP/1.1 Upgrade request. The
// raw stream is kept rather than handed to a WebSocket library because the
// frame codec in package wsframe works on the bytes directly.
//
// Transport.Run is the read loop. Each read goes into a fixed scratch buffer
// and is appended to an accumulator that wsframe.Decode consumes from the
// front. Every complete text payload is passed to an Exchanger, and the
// replies it returns are framed, masked and written in order before the next
// read:
//
//	conn, err := transport.Dial(ctx, transport.DialConfig{Endpoint: profile.Endpoint})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	t := transport.New(conn, transport.Config{RemoteAddr: conn.RemoteAddr().String()})
//	err = t.Run(ctx, exchanger)
//
// A close frame is answered with a close frame carrying the same status
// code, after which Run returns nil. Every other failure is a fatal *Error
// whose ErrorType names the failing step.
//
// A Recorder can capture each inbound and outbound payload as JSON Lines for
// offline analysis.
package transport
