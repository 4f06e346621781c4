package protocol

import (
	"reflect"
	"testing"
)

func TestSplitEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "two envelopes",
			payload: "~m~3~m~foo~m~3~m~bar",
			want:    []string{"foo", "bar"},
		},
		{
			name:    "single json envelope",
			payload: `~m~11~m~{"m":"x"}xx`,
			want:    []string{`{"m":"x"}xx`},
		},
		{
			name:    "ping",
			payload: "~m~5~m~~h~42",
			want:    []string{"~h~42"},
		},
		{
			name:    "trailing marker leaves an empty segment",
			payload: "~m~3~m~foo~m~0~m~",
			want:    []string{"foo", ""},
		},
		{
			name:    "marker only",
			payload: "~m~0~m~",
			want:    []string{""},
		},
		{
			name:    "empty payload",
			payload: "",
			want:    []string{""},
		},
		{
			name:    "no envelope",
			payload: "plain",
			want:    []string{"plain"},
		},
		{
			name:    "multi-digit lengths",
			payload: "~m~12~m~hello world!~m~123~m~x",
			want:    []string{"hello world!", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEnvelopes(tt.payload)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitEnvelopes(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestWrapEnvelope(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"", "~m~0~m~"},
		{"~h~42", "~m~5~m~~h~42"},
		{`{"m":"x"}`, `~m~9~m~{"m":"x"}`},
		// Length is in bytes, not runes.
		{"é", "~m~2~m~é"},
	}
	for _, tt := range tests {
		if got := WrapEnvelope(tt.message); got != tt.want {
			t.Errorf("WrapEnvelope(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestWrapThenSplit(t *testing.T) {
	messages := []string{`{"m":"a","p":[]}`, "~h~7", `{"release":"x"}`}
	payload := ""
	for _, m := range messages {
		payload += WrapEnvelope(m)
	}
	if got := SplitEnvelopes(payload); !reflect.DeepEqual(got, messages) {
		t.Errorf("SplitEnvelopes() = %q, want %q", got, messages)
	}
}

func TestPingReply(t *testing.T) {
	if got := PingReply(42); got != "~m~5~m~~h~42" {
		t.Errorf("PingReply(42) = %q", got)
	}
	parts := SplitEnvelopes(PingReply(42))
	if len(parts) != 1 || parts[0] != "~h~42" {
		t.Errorf("PingReply(42) decodes to %q, want [~h~42]", parts)
	}
}
