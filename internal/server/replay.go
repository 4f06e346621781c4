package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/transport"
	"github.com/holtholcomb/tvstream/internal/wsframe"
)

// Step is one payload of a replay, sent Delay after the previous one.
type Step struct {
	Delay   time.Duration
	Payload string
}

// ScriptFromCapture turns the inbound payloads of a capture into Steps,
// keeping the captured spacing. Outbound records are dropped: the client
// under test produces its own.
func ScriptFromCapture(records []transport.Record) []Step {
	var (
		steps []Step
		prev  time.Time
	)
	for _, rec := range records {
		if rec.Direction != transport.DirectionInbound {
			continue
		}
		var delay time.Duration
		if !prev.IsZero() && rec.Timestamp.After(prev) {
			delay = rec.Timestamp.Sub(prev)
		}
		if !rec.Timestamp.IsZero() {
			prev = rec.Timestamp
		}
		steps = append(steps, Step{Delay: delay, Payload: rec.Payload})
	}
	return steps
}

var errClientClosed = errors.New("client closed the connection")

// session replays steps over one upgraded connection.
type session struct {
	conn         net.Conn
	r            io.Reader
	remoteAddr   string
	steps        []Step
	speed        float64
	closeTimeout time.Duration
	recorder     *transport.Recorder

	writeMu   sync.Mutex
	closeSent bool

	sent     int
	received atomic.Int64
}

func (s *session) run(ctx context.Context) error {
	readDone := make(chan struct{})
	var readErr error
	go func() {
		defer close(readDone)
		readErr = s.readLoop()
	}()

	err := s.play(ctx, readDone)
	if errors.Is(err, errClientClosed) {
		<-readDone
		return readErr
	}
	if err != nil {
		_ = s.conn.Close()
		<-readDone
		return err
	}

	if err := s.writeClose(wsframe.CloseNormal); err != nil {
		_ = s.conn.Close()
		<-readDone
		return err
	}

	timer := time.NewTimer(s.closeTimeout)
	defer timer.Stop()
	select {
	case <-readDone:
		return readErr
	case <-timer.C:
		_ = s.conn.Close()
		<-readDone
		return fmt.Errorf("no close echo within %s", s.closeTimeout)
	case <-ctx.Done():
		_ = s.conn.Close()
		<-readDone
		return ctx.Err()
	}
}

func (s *session) play(ctx context.Context, readDone <-chan struct{}) error {
	for i, step := range s.steps {
		if d := s.scale(step.Delay); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-readDone:
				timer.Stop()
				return errClientClosed
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		select {
		case <-readDone:
			return errClientClosed
		default:
		}

		frame, err := wsframe.EncodeServerText(step.Payload)
		if err != nil {
			logging.Warn("Skipping payload that is not valid UTF-8",
				zap.String("remote_addr", s.remoteAddr),
				zap.Int("step", i),
			)
			continue
		}
		if err := s.write(frame); err != nil {
			return err
		}
		s.sent++
		logging.LogFrame(s.remoteAddr, string(transport.DirectionInbound), "text", []byte(step.Payload))
	}
	return nil
}

func (s *session) scale(d time.Duration) time.Duration {
	if s.speed <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / s.speed)
}

func (s *session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closeSent {
		return errClientClosed
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// writeClose sends a close frame unless one was already sent.
func (s *session) writeClose(code uint16) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closeSent {
		return nil
	}
	s.closeSent = true
	if _, err := s.conn.Write(wsframe.EncodeServerClose(code)); err != nil {
		return fmt.Errorf("failed to send close frame: %w", err)
	}
	return nil
}

// readLoop decodes client frames until a close frame arrives. A close from
// the client is echoed unless the server already sent one.
func (s *session) readLoop() error {
	var acc bytes.Buffer
	scratch := make([]byte, 32*1024)

	for {
		for {
			frame, err := wsframe.Decode(&acc)
			if err != nil {
				return fmt.Errorf("failed to decode client frame: %w", err)
			}

			switch frame.Kind {
			case wsframe.KindIncomplete:
			case wsframe.KindText:
				s.received.Add(1)
				logging.LogFrame(s.remoteAddr, string(transport.DirectionOutbound), "text", frame.Payload)
				if s.recorder != nil {
					if err := s.recorder.Record(s.remoteAddr, transport.DirectionOutbound, frame.Payload); err != nil {
						logging.Warn("Failed to record client payload", zap.Error(err))
					}
				}
				continue
			case wsframe.KindClose:
				logging.Info("Close frame from client",
					zap.String("remote_addr", s.remoteAddr),
					zap.Uint16("code", frame.CloseCode),
				)
				code := frame.CloseCode
				if code == wsframe.CloseNoStatus {
					code = wsframe.CloseNormal
				}
				return s.writeClose(code)
			default:
				return fmt.Errorf("unsupported client frame: %s", frame)
			}
			break
		}

		n, err := s.r.Read(scratch)
		if n > 0 {
			acc.Write(scratch[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
	}
}
