package transport

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/wsframe"
	"go.uber.org/zap"
)

// DefaultReadBufferSize is the capacity of the scratch buffer used for each
// stream read.
const DefaultReadBufferSize = 65536

// Exchanger hands one decoded text payload to the protocol side and returns
// the outbound messages for it, in send order.
type Exchanger interface {
	Exchange(ctx context.Context, payload string) ([]string, error)
}

// ExchangerFunc adapts a function to the Exchanger interface.
type ExchangerFunc func(ctx context.Context, payload string) ([]string, error)

func (f ExchangerFunc) Exchange(ctx context.Context, payload string) ([]string, error) {
	return f(ctx, payload)
}

// Config holds optional transport settings.
type Config struct {
	RemoteAddr     string    // Used in logs and captures only
	ReadBufferSize int       // Defaults to DefaultReadBufferSize
	Recorder       *Recorder // Optional payload capture
}

// Transport owns the upgraded byte stream. It is the only reader and the only
// writer of the stream.
type Transport struct {
	conn       io.ReadWriter
	remoteAddr string
	recorder   *Recorder
	scratch    []byte
	acc        bytes.Buffer
	received   int
}

// New creates a Transport over an already upgraded stream.
func New(conn io.ReadWriter, cfg Config) *Transport {
	size := cfg.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	return &Transport{
		conn:       conn,
		remoteAddr: cfg.RemoteAddr,
		recorder:   cfg.Recorder,
		scratch:    make([]byte, size),
	}
}

// Received returns the number of text payloads decoded so far.
func (t *Transport) Received() int {
	return t.received
}

// Run reads the stream until the peer closes it, a close frame arrives, or a
// fatal error occurs. Every decoded text payload is passed to ex, and the
// replies are written before the next read.
//
// A zero-byte read, io.EOF or a close frame end Run with a nil error. If ctx
// is cancelled and the stream is an io.Closer, the stream is closed to unblock
// a pending read and Run returns nil.
func (t *Transport) Run(ctx context.Context, ex Exchanger) error {
	logging.LogConnection(t.remoteAddr, "stream_started")
	defer logging.LogConnection(t.remoteAddr, "stream_ended")

	if closer, ok := t.conn.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	for {
		n, err := t.conn.Read(t.scratch)
		if n > 0 {
			metrics.AddBytes("in", n)
			t.acc.Write(t.scratch[:n])

			stop, derr := t.drain(ctx, ex)
			if derr != nil {
				return t.fail(derr)
			}
			if stop {
				return nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				logging.Info("Connection closed by server",
					zap.String("remote_addr", t.remoteAddr),
					zap.Int("buffered", t.acc.Len()),
				)
				return nil
			}
			if ctx.Err() != nil {
				logging.Info("Stream closed on cancellation",
					zap.String("remote_addr", t.remoteAddr),
				)
				return nil
			}
			return t.fail(&Error{Type: ErrTypeRead, Message: "failed to read from stream", Addr: t.remoteAddr, Err: err})
		}

		if n == 0 {
			logging.Info("Zero-byte read, treating stream as closed",
				zap.String("remote_addr", t.remoteAddr),
			)
			return nil
		}
	}
}

// drain decodes every complete frame in the accumulator. It reports true
// when the loop should stop: a close frame was handled or ctx ended while
// waiting for replies.
func (t *Transport) drain(ctx context.Context, ex Exchanger) (bool, error) {
	for {
		frame, err := wsframe.Decode(&t.acc)
		if err != nil {
			logging.LogRawBytes("Undecodable frame", t.acc.Bytes())
			return false, &Error{Type: ErrTypeFrameDecode, Message: "failed to decode frame", Addr: t.remoteAddr, Err: err}
		}

		switch frame.Kind {
		case wsframe.KindIncomplete:
			return false, nil

		case wsframe.KindClose:
			metrics.IncFrame("in", "close")
			logging.LogFrame(t.remoteAddr, "received", "close", frame.Payload)
			t.handleClose(frame)
			return true, nil

		case wsframe.KindText:
			t.received++
			metrics.IncFrame("in", "text")
			logging.LogFrame(t.remoteAddr, "received", "text", frame.Payload)
			t.record(DirectionInbound, frame.Payload)

			replies, err := ex.Exchange(ctx, frame.Text())
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return true, nil
				}
				return false, err
			}
			for _, reply := range replies {
				if err := t.writeText(reply); err != nil {
					return false, err
				}
			}
		}
	}
}

func (t *Transport) writeText(msg string) error {
	data, err := wsframe.EncodeText(msg)
	if err != nil {
		return &Error{Type: ErrTypeFrameEncode, Message: "failed to encode frame", Addr: t.remoteAddr, Err: err}
	}

	if _, err := t.conn.Write(data); err != nil {
		return &Error{Type: ErrTypeWrite, Message: "failed to write frame", Addr: t.remoteAddr, Err: err}
	}

	metrics.AddBytes("out", len(data))
	metrics.IncFrame("out", "text")
	logging.LogFrame(t.remoteAddr, "sent", "text", []byte(msg))
	t.record(DirectionOutbound, []byte(msg))
	return nil
}

// handleClose echoes the server's close code. A close without a status is
// answered with a normal closure since 1005 must not appear on the wire.
func (t *Transport) handleClose(frame wsframe.Frame) {
	logging.Info("Received close frame from server",
		zap.String("remote_addr", t.remoteAddr),
		zap.Uint16("code", frame.CloseCode),
	)

	code := frame.CloseCode
	if code == wsframe.CloseNoStatus {
		code = wsframe.CloseNormal
	}
	data := wsframe.EncodeClose(code)
	if _, err := t.conn.Write(data); err != nil {
		logging.Warn("Failed to echo close frame",
			zap.String("remote_addr", t.remoteAddr),
			zap.Error(err),
		)
		return
	}
	metrics.AddBytes("out", len(data))
	metrics.IncFrame("out", "close")
}

func (t *Transport) record(direction Direction, payload []byte) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.Record(t.remoteAddr, direction, payload); err != nil {
		logging.Warn("Failed to record payload",
			zap.String("remote_addr", t.remoteAddr),
			zap.Error(err),
		)
	}
}

func (t *Transport) fail(err error) error {
	var te *Error
	if errors.As(err, &te) {
		metrics.IncError(te.Type.Label())
	}
	logging.Error("Transport failed",
		zap.String("remote_addr", t.remoteAddr),
		zap.Error(err),
	)
	return err
}
