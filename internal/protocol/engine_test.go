package protocol

import (
	"context"
	"strings"
	"testing"

	"github.com/holtholcomb/tvstream/internal/config"
)

const helloPayload = `{"session_id":"<0.1.2>","timestamp":1700000000,"release":"release_206-21","protocol":"json"}`

// recorder is an Observer that keeps what it saw.
type recorder struct {
	kinds []MessageKind
}

func (r *recorder) Observe(_ context.Context, msg *Message) {
	r.kinds = append(r.kinds, msg.Kind)
}

func newTestEngine(t *testing.T, mutate func(p *config.Profile)) (*Engine, *recorder) {
	t.Helper()
	profile := config.DefaultProfile()
	if mutate != nil {
		mutate(profile)
	}
	rec := &recorder{}
	e, err := NewEngine(profile, rec)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, rec
}

func wrapAll(messages ...string) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(WrapEnvelope(m))
	}
	return b.String()
}

func TestEngineBootstrap(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	ctx := context.Background()

	if e.State() != StateAwaitingHello {
		t.Fatalf("initial state = %s, want awaiting_hello", e.State())
	}
	if e.Ready() {
		t.Error("Ready() should be false before hello")
	}

	out, err := e.Handle(ctx, wrapAll(helloPayload))
	if err != nil {
		t.Fatalf("Handle(hello) error = %v", err)
	}
	if len(out) != 9 {
		t.Fatalf("Handle(hello) = %d commands, want 9", len(out))
	}
	if out[0] != `~m~54~m~{"m":"set_auth_token","p":["unauthorized_user_token"]}` {
		t.Errorf("first command = %s", out[0])
	}
	for i, want := range []string{
		"set_auth_token", "quote_create_session", "quote_set_fields", "quote_add_symbols",
		"quote_fast_symbols", "chart_create_session", "resolve_symbol", "create_series", "create_study",
	} {
		if !strings.Contains(out[i], `"m":"`+want+`"`) {
			t.Errorf("command %d = %.60s..., want method %s", i, out[i], want)
		}
	}
	if e.State() != StateBootstrapped {
		t.Errorf("state = %s, want bootstrapped", e.State())
	}
	if !e.Ready() {
		t.Error("Ready() should be true after hello")
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != KindServerHello {
		t.Errorf("observed = %v, want [server_hello]", rec.kinds)
	}
}

func TestEngineBootstrapOnce(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := e.Handle(ctx, wrapAll(helloPayload))
	if err != nil || len(first) != 9 {
		t.Fatalf("first hello: %d commands, err %v", len(first), err)
	}
	second, err := e.Handle(ctx, wrapAll(helloPayload))
	if err != nil {
		t.Fatalf("second hello error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second hello produced %d commands, want 0", len(second))
	}

	// Two hellos in one payload bootstrap exactly once as well.
	e2, _ := newTestEngine(t, nil)
	out, err := e2.Handle(ctx, wrapAll(helloPayload, helloPayload))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(out) != 9 {
		t.Errorf("double hello produced %d commands, want 9", len(out))
	}
}

func TestEnginePing(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	ctx := context.Background()

	out, err := e.Handle(ctx, "~m~5~m~~h~42")
	if err != nil {
		t.Fatalf("Handle(ping) error = %v", err)
	}
	if len(out) != 1 || out[0] != "~m~5~m~~h~42" {
		t.Fatalf("Handle(ping) = %q, want [~m~5~m~~h~42]", out)
	}
	if parts := SplitEnvelopes(out[0]); len(parts) != 1 || parts[0] != "~h~42" {
		t.Errorf("reply decodes to %q, want ~h~42", parts)
	}
	// A ping before hello does not bootstrap or change state.
	if e.State() != StateAwaitingHello {
		t.Errorf("state = %s, want awaiting_hello", e.State())
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != KindPing {
		t.Errorf("observed = %v, want [ping]", rec.kinds)
	}
}

func TestEngineStreaming(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.Handle(ctx, wrapAll(helloPayload)); err != nil {
		t.Fatalf("Handle(hello) error = %v", err)
	}

	payload := wrapAll(
		`{"m":"quote_completed","p":["quote_session_id","CRYPTO:BTCUSD"]}`,
		`{"m":"qsd","p":["quote_session_id",{"n":"CRYPTO:BTCUSD","s":"ok","v":{"lp":37000.5}}]}`,
		`{"m":"du","p":["chart_session_id",{"series_id":{"s":[{"i":1,"v":[1700000000,1,2,0.5,1.5,10]}]}}]}`,
		"",
	)
	out, err := e.Handle(ctx, payload)
	if err != nil {
		t.Fatalf("Handle(data) error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("data messages produced %d commands, want 0", len(out))
	}
	if e.State() != StateStreaming {
		t.Errorf("state = %s, want streaming", e.State())
	}

	want := []MessageKind{KindServerHello, KindQuoteCompleted, KindQuoteLastPrice, KindSeriesDataUpdate}
	if len(rec.kinds) != len(want) {
		t.Fatalf("observed %v, want %v", rec.kinds, want)
	}
	for i := range want {
		if rec.kinds[i] != want[i] {
			t.Errorf("observed[%d] = %s, want %s", i, rec.kinds[i], want[i])
		}
	}
}

func TestEngineFatalServerErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind MessageKind
	}{
		{"critical error", `{"m":"critical_error","p":["chart_session_id","invalid series"]}`, KindCriticalError},
		{"protocol error", `{"m":"protocol_error","p":["wrong data"]}`, KindProtocolError},
		{"study error", `{"m":"study_error","p":["chart_session_id","study_id","","bad input"]}`, KindStudyError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, nil)
			ctx := context.Background()

			// The ping reply queued before the error is discarded.
			out, err := e.Handle(ctx, wrapAll("~h~1", tt.body))
			if out != nil {
				t.Errorf("Handle() returned %d commands alongside a fatal error", len(out))
			}
			se, ok := IsServerError(err)
			if !ok {
				t.Fatalf("Handle() error = %v, want ServerError", err)
			}
			if se.Kind != tt.kind {
				t.Errorf("ServerError.Kind = %s, want %s", se.Kind, tt.kind)
			}
			if string(se.Body) != tt.body {
				t.Errorf("ServerError.Body = %s, want %s", se.Body, tt.body)
			}
			if e.State() != StateTerminated {
				t.Errorf("state = %s, want terminated", e.State())
			}
			if e.Err() != err {
				t.Errorf("Err() = %v, want %v", e.Err(), err)
			}

			// Nothing further is emitted, not even for a hello.
			out, err = e.Handle(ctx, wrapAll(helloPayload))
			if out != nil {
				t.Errorf("terminated engine emitted %d commands", len(out))
			}
			if !IsType(err, ErrTypeTerminated) {
				t.Errorf("Handle() after termination error = %v, want terminated", err)
			}
			if _, ok := IsServerError(err); !ok {
				t.Error("terminated error should wrap the original cause")
			}
		})
	}
}

func TestEngineParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ErrorType
	}{
		{"invalid json", wrapAll(`{"m":`), ErrTypeParse},
		{"unknown shape", wrapAll(`{"m":"brand_new","p":[]}`), ErrTypeUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, nil)
			_, err := e.Handle(context.Background(), tt.payload)
			if !IsType(err, tt.want) {
				t.Fatalf("Handle() error = %v, want %s", err, tt.want)
			}
			if e.State() != StateTerminated {
				t.Errorf("state = %s, want terminated", e.State())
			}
		})
	}
}

func TestEngineLenientClassification(t *testing.T) {
	e, rec := newTestEngine(t, func(p *config.Profile) {
		p.StrictClassification = false
	})

	out, err := e.Handle(context.Background(), wrapAll(`{"m":"brand_new","p":[]}`, "~h~3"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(out) != 1 || out[0] != PingReply(3) {
		t.Errorf("Handle() = %q, want the ping reply only", out)
	}
	if len(rec.kinds) != 2 || rec.kinds[0] != KindUnclassified {
		t.Errorf("observed = %v, want [unclassified ping]", rec.kinds)
	}
	if e.State() == StateTerminated {
		t.Error("lenient engine should not terminate on unknown shapes")
	}

	// Invalid JSON stays fatal.
	if _, err := e.Handle(context.Background(), wrapAll("{")); !IsType(err, ErrTypeParse) {
		t.Errorf("Handle(invalid json) error = %v, want parse error", err)
	}
}

func TestEngineReplyOrder(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	out, err := e.Handle(context.Background(), wrapAll("~h~1", helloPayload, "~h~2"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(out) != 11 {
		t.Fatalf("Handle() = %d commands, want 11", len(out))
	}
	if out[0] != PingReply(1) || out[10] != PingReply(2) {
		t.Errorf("replies out of order: first=%s last=%s", out[0], out[10])
	}
}

func TestNewEngineNilProfile(t *testing.T) {
	if _, err := NewEngine(nil, nil); err == nil {
		t.Error("NewEngine(nil) should fail")
	}
}

func TestStateString(t *testing.T) {
	if StateStreaming.String() != "streaming" || State(9).String() != "State(9)" {
		t.Errorf("State.String() = %q / %q", StateStreaming.String(), State(9).String())
	}
}
