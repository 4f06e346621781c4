package observer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"github.com/holtholcomb/tvstream/internal/ui"
)

// ConsoleSink prints one line per market data or status message. Pings are
// skipped unless ShowPings is set.
type ConsoleSink struct {
	ShowPings bool

	mu    sync.Mutex
	w     io.Writer
	color bool
	last  map[string]float64
	now   func() time.Time
}

// NewConsoleSink creates a ConsoleSink writing to w. When color is false the
// lipgloss styles are not applied.
func NewConsoleSink(w io.Writer, color bool) *ConsoleSink {
	return &ConsoleSink{
		w:     w,
		color: color,
		last:  make(map[string]float64),
		now:   time.Now,
	}
}

func (s *ConsoleSink) Observe(_ context.Context, msg *protocol.Message) {
	if msg.Kind == protocol.KindPing && !s.ShowPings {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.describe(msg)
	if line == "" {
		return
	}
	_, _ = fmt.Fprintf(s.w, "%s %s %s\n",
		s.style(ui.TimestampStyle, s.now().Format("15:04:05.000")),
		s.style(ui.KindStyle, fmt.Sprintf("%-20s", msg.Kind.String())),
		line,
	)
}

func (s *ConsoleSink) describe(msg *protocol.Message) string {
	switch {
	case msg.Kind == protocol.KindPing:
		return "heartbeat " + strconv.FormatUint(msg.PingID, 10)

	case msg.Kind == protocol.KindServerHello:
		return "connected, release " + msg.Get("release").String()

	case msg.Kind.IsQuoteFieldUpdate():
		return s.describeQuote(msg)

	case msg.Kind == protocol.KindSeriesDataUpdate || msg.Kind == protocol.KindTimescaleUpdate:
		bars, err := msg.SeriesBars()
		if err != nil {
			return s.style(ui.ErrorMessageStyle, err.Error())
		}
		if len(bars) == 0 {
			return "no bars"
		}
		b := bars[len(bars)-1]
		return fmt.Sprintf("%d bars, last %s O %s H %s L %s C %s V %s",
			len(bars), b.Time.UTC().Format(time.DateTime),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close), formatFloat(b.Volume))

	case msg.Kind == protocol.KindStudyDataUpdate:
		points, err := msg.StudyPoints()
		if err != nil {
			return s.style(ui.ErrorMessageStyle, err.Error())
		}
		if len(points) == 0 {
			return "no points"
		}
		return fmt.Sprintf("%d points, last has %d values", len(points), len(points[len(points)-1].Values))

	case msg.Kind.IsStatus():
		return s.style(ui.NoticeStyle, msg.Method)

	case msg.Kind.IsFatal():
		return s.style(ui.ErrorMessageStyle, msg.Raw)

	default:
		return msg.Method
	}
}

func (s *ConsoleSink) describeQuote(msg *protocol.Message) string {
	q, err := msg.Quote()
	if err != nil {
		return s.style(ui.ErrorMessageStyle, err.Error())
	}
	symbol := s.style(ui.SymbolStyle, q.Symbol)

	d := q.Data
	switch {
	case d.Price != nil:
		price := formatFloat(*d.Price)
		prev, seen := s.last[q.Symbol]
		s.last[q.Symbol] = *d.Price
		if seen && *d.Price > prev {
			price = s.style(ui.PriceUpStyle, price+" ▲")
		} else if seen && *d.Price < prev {
			price = s.style(ui.PriceDownStyle, price+" ▼")
		}
		return symbol + " " + price
	case d.Bid != nil || d.BidSize != nil:
		return fmt.Sprintf("%s bid %s x %s ask %s x %s", symbol,
			formatPtr(d.Bid), formatPtr(d.BidSize), formatPtr(d.Ask), formatPtr(d.AskSize))
	case d.Description != nil:
		return symbol + " " + *d.Description
	case d.PriceTime != nil:
		return symbol + " at " + time.Unix(*d.PriceTime, 0).UTC().Format(time.DateTime)
	default:
		return symbol
	}
}

func (s *ConsoleSink) style(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}
