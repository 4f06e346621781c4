package observer

import (
	"context"

	"github.com/holtholcomb/tvstream/internal/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogSink writes each classified message to a zap logger. Pings are logged at
// debug level, everything else at info.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a LogSink. A nil logger discards everything.
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Observe(_ context.Context, msg *protocol.Message) {
	level := zapcore.InfoLevel
	if msg.Kind == protocol.KindPing {
		level = zapcore.DebugLevel
	}
	ce := s.log.Check(level, "Message received")
	if ce == nil {
		return
	}
	ce.Write(fields(msg)...)
}

func fields(msg *protocol.Message) []zap.Field {
	f := []zap.Field{zap.String("kind", msg.Kind.String())}

	switch {
	case msg.Kind == protocol.KindPing:
		f = append(f, zap.Uint64("id", msg.PingID))

	case msg.Kind == protocol.KindServerHello:
		f = append(f,
			zap.String("release", msg.Get("release").String()),
			zap.String("session_id", msg.Get("session_id").String()),
		)

	case msg.Kind.IsQuoteFieldUpdate():
		q, err := msg.Quote()
		if err != nil {
			return append(f, zap.NamedError("decode_error", err))
		}
		f = append(f, zap.String("symbol", q.Symbol))
		if q.Data.Price != nil {
			f = append(f, zap.Float64("price", *q.Data.Price))
		}
		if q.Data.Bid != nil && q.Data.Ask != nil {
			f = append(f, zap.Float64("bid", *q.Data.Bid), zap.Float64("ask", *q.Data.Ask))
		}

	case msg.Kind == protocol.KindSeriesDataUpdate || msg.Kind == protocol.KindTimescaleUpdate:
		bars, err := msg.SeriesBars()
		if err != nil {
			return append(f, zap.NamedError("decode_error", err))
		}
		f = append(f, zap.Int("bars", len(bars)))
		if n := len(bars); n > 0 {
			f = append(f, zap.Time("last_time", bars[n-1].Time), zap.Float64("last_close", bars[n-1].Close))
		}

	case msg.Kind == protocol.KindStudyDataUpdate:
		points, err := msg.StudyPoints()
		if err != nil {
			return append(f, zap.NamedError("decode_error", err))
		}
		f = append(f, zap.Int("points", len(points)))

	default:
		f = append(f, zap.String("method", msg.Method), zap.Int("length", len(msg.Raw)))
	}
	return f
}
