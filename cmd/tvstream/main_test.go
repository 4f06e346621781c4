package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"github.com/holtholcomb/tvstream/internal/transport"
)

func TestStreamOptionsFromEnv(t *testing.T) {
	t.Setenv("TVSTREAM_METRICS_ADDR", ":9191")
	t.Setenv("TVSTREAM_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TVSTREAM_SHOW_PINGS", "true")

	cmd := &cobra.Command{Use: "stream"}
	cmd.Flags().AddFlagSet(streamCmd.Flags())
	cmd.Flags().String("config", "", "")
	if err := cmd.Flags().Parse([]string{"--dial-timeout", "3s", "--kafka-topic", "tv.test"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := loadStreamOptions(cmd)
	if err != nil {
		t.Fatalf("loadStreamOptions() error = %v", err)
	}

	if opts.MetricsAddr != ":9191" {
		t.Errorf("MetricsAddr = %q, want %q", opts.MetricsAddr, ":9191")
	}
	if len(opts.KafkaBrokers) != 2 || opts.KafkaBrokers[0] != "k1:9092" || opts.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v, want [k1:9092 k2:9092]", opts.KafkaBrokers)
	}
	if !opts.ShowPings {
		t.Error("ShowPings = false, want true")
	}
	if opts.DialTimeout != 3*time.Second {
		t.Errorf("DialTimeout = %v, want 3s", opts.DialTimeout)
	}
	if opts.KafkaTopic != "tv.test" {
		t.Errorf("KafkaTopic = %q, want %q", opts.KafkaTopic, "tv.test")
	}
	if opts.KafkaAcks != "all" {
		t.Errorf("KafkaAcks = %q, want default %q", opts.KafkaAcks, "all")
	}
}

func TestSummarize(t *testing.T) {
	records := []transport.Record{
		{Direction: transport.DirectionInbound, Payload: `~m~15~m~{"release":"x"}`},
		{Direction: transport.DirectionOutbound, Payload: `~m~7~m~~h~1`},
		{Direction: transport.DirectionInbound, Payload: `~m~5~m~~h~42`},
		{Direction: transport.DirectionInbound, Payload: `~m~5~m~~h~43~m~8~m~not json`},
		{Direction: transport.DirectionInbound, Payload: `~m~36~m~{"m":"quote_completed","p":["q","X"]}~m~5~m~~h~44~m~0~m~`},
	}

	s := summarize(records, protocol.NewClassifier(config.DefaultProfile().Session.IDs))

	if s.Inbound != 4 || s.Outbound != 1 {
		t.Errorf("Inbound, Outbound = %d, %d, want 4, 1", s.Inbound, s.Outbound)
	}
	if s.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", s.ParseErrors)
	}
	if s.SubMessages != 5 {
		t.Errorf("SubMessages = %d, want 5", s.SubMessages)
	}

	want := []kindCount{
		{Kind: "ping", Count: 3},
		{Kind: "quote_completed", Count: 1},
		{Kind: "server_hello", Count: 1},
	}
	if len(s.Kinds) != len(want) {
		t.Fatalf("Kinds = %v, want %v", s.Kinds, want)
	}
	for i := range want {
		if s.Kinds[i] != want[i] {
			t.Errorf("Kinds[%d] = %v, want %v", i, s.Kinds[i], want[i])
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configForce = false
		flags := rootCmd.PersistentFlags()
		_ = flags.Set("config", "")
		_ = flags.Set("log-level", "")
		_ = flags.Set("log-format", "console")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile", "session.yaml")

	if _, err := execute(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	if _, err := execute(t, "config", "init", "--config", path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second config init error = %v, want already exists", err)
	}

	if _, err := execute(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var shown config.Profile
	if err := yaml.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("config show output is not YAML: %v\n%s", err, out)
	}
	def := config.DefaultProfile()
	if shown.Session.Symbol != def.Session.Symbol || shown.Endpoint.Host != def.Endpoint.Host {
		t.Errorf("shown profile = %+v, want defaults", shown)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "tvstream ") || !strings.Contains(out, "commit:") {
		t.Errorf("version output = %q", out)
	}
}

func TestUnknownLogFormat(t *testing.T) {
	if _, err := execute(t, "--log-format", "xml", "version"); err == nil {
		t.Error("execute() with --log-format xml error = nil, want error")
	}
}

func TestApplyEndpointOverrides(t *testing.T) {
	ep := config.DefaultProfile().Endpoint
	applyEndpointOverrides(&ep, &streamOptions{})
	if ep != config.DefaultProfile().Endpoint {
		t.Errorf("no overrides changed endpoint to %+v", ep)
	}

	applyEndpointOverrides(&ep, &streamOptions{Host: "127.0.0.1", Port: 8765, Plain: true})
	if ep.Host != "127.0.0.1" || ep.Port != 8765 || ep.TLS {
		t.Errorf("endpoint = %+v, want 127.0.0.1:8765 without TLS", ep)
	}
	if ep.Path != config.DefaultProfile().Endpoint.Path {
		t.Errorf("path = %q, want profile path kept", ep.Path)
	}
}
