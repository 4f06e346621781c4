package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is set")
	}
}

func TestInitializeLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.Level(-2)},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
		{"bogus", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if err := InitializeWithFormat(tt.level, FormatJSON); err != nil {
				t.Fatalf("InitializeWithFormat() error = %v", err)
			}
			core := GetLogger().Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if core.Enabled(tt.muted) {
				t.Errorf("level %s should be muted", tt.muted)
			}
		})
	}
	SetLogger(nil)
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) || GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("env level warn was not applied")
	}
	SetLogger(nil)
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("1.2.3.4:443", "received", "text", []byte("~m~5~m~~h~42"))
	LogFrame("1.2.3.4:443", "received", "close", []byte{0x03, 0xE8})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["content"]; got != "~m~5~m~~h~42" {
		t.Errorf("content = %v", got)
	}
	if got := entries[1].ContextMap()["hex_dump"]; got != "03e8" {
		t.Errorf("hex_dump = %v, want 03e8", got)
	}
}

func TestLogFrameSkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("x", "sent", "text", []byte("hi"))
	if logs.Len() != 0 {
		t.Errorf("LogFrame wrote %d entries at info level", logs.Len())
	}
}

func TestDumps(t *testing.T) {
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should dump to empty strings")
	}
	if got := asciiDump([]byte("a\x00b")); got != "a.b" {
		t.Errorf("asciiDump() = %q, want a.b", got)
	}
	long := make([]byte, 300)
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != 2*dumpLimit+3 {
		t.Errorf("hexDump() length = %d", len(got))
	}
	if got := truncate(strings.Repeat("x", 2000)); len(got) != 4*dumpLimit+3 {
		t.Errorf("truncate() length = %d", len(got))
	}
}
