package observer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

const (
	helloMsg     = `{"session_id":"<0.1.2>","timestamp":1700000000,"release":"release_206-21"}`
	lastPriceMsg = `{"m":"qsd","p":["quote_session_id",{"n":"CRYPTO:BTCUSD","s":"ok","v":{"lp":%s}}]}`
	bidAskMsg    = `{"m":"qsd","p":["quote_session_id",{"n":"CRYPTO:BTCUSD","s":"ok","v":{"bid":1,"ask":2,"bid_size":3,"ask_size":4}}]}`
	seriesMsg    = `{"m":"du","p":["chart_session_id",{"series_id":{"s":[{"i":1,"v":[1700000000,1,2,0.5,1.5,10]}]}}]}`
	studyMsg     = `{"m":"du","p":["chart_session_id",{"study_id":{"st":[{"i":1,"v":[1700000000,5,6]}]}}]}`
	completedMsg = `{"m":"series_completed","p":["chart_session_id","series_id","streaming"]}`
)

func classify(t *testing.T, raw string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewClassifier(config.DefaultProfile().Session.IDs).Classify(raw)
	if err != nil {
		t.Fatalf("Classify(%s) error = %v", raw, err)
	}
	return msg
}

func lastPrice(t *testing.T, price string) *protocol.Message {
	t.Helper()
	return classify(t, strings.Replace(lastPriceMsg, "%s", price, 1))
}

type kindRecorder struct {
	kinds []protocol.MessageKind
}

func (r *kindRecorder) Observe(_ context.Context, msg *protocol.Message) {
	r.kinds = append(r.kinds, msg.Kind)
}

func TestMulti(t *testing.T) {
	a, b := &kindRecorder{}, &kindRecorder{}
	m := Multi(a, nil, b)

	m.Observe(context.Background(), classify(t, helloMsg))
	m.Observe(context.Background(), classify(t, "~h~1"))

	for _, r := range []*kindRecorder{a, b} {
		if len(r.kinds) != 2 || r.kinds[0] != protocol.KindServerHello || r.kinds[1] != protocol.KindPing {
			t.Errorf("observed %v", r.kinds)
		}
	}
}

func TestLogSink(t *testing.T) {
	core, logs := zapobserver.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))
	ctx := context.Background()

	sink.Observe(ctx, classify(t, "~h~7"))
	sink.Observe(ctx, lastPrice(t, "37000.5"))
	sink.Observe(ctx, classify(t, seriesMsg))
	sink.Observe(ctx, classify(t, completedMsg))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3 (ping is debug)", len(entries))
	}

	quote := entries[0].ContextMap()
	if quote["kind"] != "quote_last_price" || quote["symbol"] != "CRYPTO:BTCUSD" || quote["price"] != 37000.5 {
		t.Errorf("quote fields = %v", quote)
	}
	series := entries[1].ContextMap()
	if series["bars"] != int64(1) || series["last_close"] != 1.5 {
		t.Errorf("series fields = %v", series)
	}
	status := entries[2].ContextMap()
	if status["method"] != "series_completed" {
		t.Errorf("status fields = %v", status)
	}

	// A nil logger is a no-op.
	NewLogSink(nil).Observe(ctx, classify(t, helloMsg))
}

func TestMetricsSink(t *testing.T) {
	ctx := context.Background()
	counter := metrics.MessagesTotal.WithLabelValues("quote_last_price")
	before := testutil.ToFloat64(counter)

	MetricsSink{}.Observe(ctx, lastPrice(t, "101.25"))
	MetricsSink{}.Observe(ctx, lastPrice(t, "99"))
	MetricsSink{}.Observe(ctx, classify(t, bidAskMsg))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("quote_last_price count delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.LastPrice.WithLabelValues("CRYPTO:BTCUSD")); got != 99 {
		t.Errorf("last price gauge = %v, want 99", got)
	}
}

func TestMetricsSinkPriceFromOtherQuoteKinds(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		symbol   string
		wantKind protocol.MessageKind
		want     float64
	}{
		{
			name:     "last price with time",
			raw:      `{"m":"qsd","p":["quote_session_id",{"n":"TEST:LPTIME","s":"ok","v":{"lp":123.5,"lp_time":1700000000}}]}`,
			symbol:   "TEST:LPTIME",
			wantKind: protocol.KindQuoteLastPriceTime,
			want:     123.5,
		},
		{
			name:     "last price with bid ask",
			raw:      `{"m":"qsd","p":["quote_session_id",{"n":"TEST:BIDASK","s":"ok","v":{"bid_size":1,"bid":10,"ask":11,"lp":10.5}}]}`,
			symbol:   "TEST:BIDASK",
			wantKind: protocol.KindQuoteBidAsk,
			want:     10.5,
		},
		{
			name:     "last price with description",
			raw:      `{"m":"qsd","p":["quote_session_id",{"n":"TEST:DESC","s":"ok","v":{"description":"Test","lp":7}}]}`,
			symbol:   "TEST:DESC",
			wantKind: protocol.KindQuoteDescription,
			want:     7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := classify(t, tt.raw)
			if msg.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", msg.Kind, tt.wantKind)
			}
			MetricsSink{}.Observe(context.Background(), msg)
			if got := testutil.ToFloat64(metrics.LastPrice.WithLabelValues(tt.symbol)); got != tt.want {
				t.Errorf("last price gauge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsoleSink(t *testing.T) {
	var out bytes.Buffer
	sink := NewConsoleSink(&out, false)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600e6, time.UTC) }
	ctx := context.Background()

	for _, msg := range []*protocol.Message{
		classify(t, helloMsg),
		classify(t, "~h~7"),
		lastPrice(t, "100"),
		lastPrice(t, "101"),
		lastPrice(t, "99.5"),
		classify(t, bidAskMsg),
		classify(t, seriesMsg),
		classify(t, studyMsg),
		classify(t, completedMsg),
	} {
		sink.Observe(ctx, msg)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"connected, release release_206-21",
		"CRYPTO:BTCUSD 100",
		"CRYPTO:BTCUSD 101 ▲",
		"CRYPTO:BTCUSD 99.5 ▼",
		"CRYPTO:BTCUSD bid 1 x 3 ask 2 x 4",
		"1 bars, last 2023-11-14 22:13:20 O 1 H 2 L 0.5 C 1.5 V 10",
		"1 points, last has 2 values",
		"series_completed",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], "03:04:05.600 ") || !strings.HasSuffix(lines[i], w) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], w)
		}
	}

	out.Reset()
	sink.ShowPings = true
	sink.Observe(ctx, classify(t, "~h~7"))
	if !strings.Contains(out.String(), "heartbeat 7") {
		t.Errorf("ping line = %q", out.String())
	}
}
