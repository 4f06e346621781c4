package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/metrics"
	"github.com/holtholcomb/tvstream/internal/observer"
	"github.com/holtholcomb/tvstream/internal/pipeline"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"github.com/holtholcomb/tvstream/internal/transport"
	"github.com/holtholcomb/tvstream/internal/ui"
	"github.com/holtholcomb/tvstream/internal/version"
)

// streamOptions is the decoded flag and environment set of the stream command.
type streamOptions struct {
	Config           string        `mapstructure:"config"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Plain            bool          `mapstructure:"plain"`
	Insecure         bool          `mapstructure:"insecure"`
	MetricsAddr      string        `mapstructure:"metrics-addr"`
	CaptureDir       string        `mapstructure:"capture-dir"`
	DialTimeout      time.Duration `mapstructure:"dial-timeout"`
	ShowPings        bool          `mapstructure:"show-pings"`
	NoColor          bool          `mapstructure:"no-color"`
	KafkaBrokers     []string      `mapstructure:"kafka-brokers"`
	KafkaTopic       string        `mapstructure:"kafka-topic"`
	KafkaAcks        string        `mapstructure:"kafka-acks"`
	KafkaCompression string        `mapstructure:"kafka-compression"`
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Connect to the gateway and stream updates",
	Long: `Connect to the gateway described by the session profile and stream updates.

The session is bootstrapped once, right after the server hello. Quote, candle
and study updates are printed as they arrive. The command ends when the server
closes the connection, on Ctrl-C, or when the server reports an error.

There is no reconnection. Run tvstream under a supervisor if it must stay up.`,
	Example: `  # Stream with the default session profile
  tvstream stream

  # Verbose protocol logging and a capture file for later analysis
  tvstream stream --log-level debug --capture-dir ./captures

  # Expose Prometheus metrics and publish data updates to Kafka
  tvstream stream --metrics-addr :9090 --kafka-brokers localhost:9092 --kafka-topic tv.updates

  # Stream from a local replay server (see 'tvstream replay')
  tvstream stream --host 127.0.0.1 --port 8765 --plain`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	f := streamCmd.Flags()
	f.String("host", "", "Override endpoint.host of the session profile")
	f.Int("port", 0, "Override endpoint.port of the session profile")
	f.Bool("plain", false, "Connect without TLS")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.String("metrics-addr", "", "Serve /metrics, /healthz and /readyz on this address (disabled if empty)")
	f.String("capture-dir", "", "Directory to write a JSONL capture of every payload (disabled if empty)")
	f.Duration("dial-timeout", 15*time.Second, "TCP connect timeout")
	f.Bool("show-pings", false, "Print heartbeats on the console")
	f.Bool("no-color", false, "Disable colored console output")
	f.StringSlice("kafka-brokers", nil, "Kafka brokers to publish data updates to (disabled if empty)")
	f.String("kafka-topic", "tvstream.updates", "Kafka topic for data updates")
	f.String("kafka-acks", "all", "Kafka required acks (all, leader, none)")
	f.String("kafka-compression", "none", "Kafka compression (none, gzip, snappy, lz4, zstd)")
}

func loadStreamOptions(cmd *cobra.Command) (*streamOptions, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	var opts streamOptions
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return &opts, nil
}

func runStream(cmd *cobra.Command, args []string) error {
	opts, err := loadStreamOptions(cmd)
	if err != nil {
		return err
	}

	profile, err := config.LoadProfile(opts.Config)
	if err != nil {
		return err
	}
	applyEndpointOverrides(&profile.Endpoint, opts)

	log := logging.Named("stream")
	out := cmd.OutOrStdout()
	color := !opts.NoColor && ui.IsTerminal(os.Stdout)

	if color {
		fmt.Fprintln(out, ui.NewHeader("tvstream", "tvstream stream",
			ui.Param{Key: "Endpoint", Value: profile.Endpoint.URL()},
			ui.Param{Key: "Symbol", Value: profile.Session.Symbol},
			ui.Param{Key: "Interval", Value: profile.Session.Series.Interval},
			ui.Param{Key: "Study", Value: profile.Session.Study.Script},
		).Render())
	}

	console := observer.NewConsoleSink(out, color)
	console.ShowPings = opts.ShowPings
	sinks := []protocol.Observer{
		observer.NewLogSink(logging.Named("updates")),
		observer.MetricsSink{},
		console,
	}

	if len(opts.KafkaBrokers) > 0 {
		kafka, err := observer.NewKafkaSink(observer.KafkaConfig{
			Brokers:      opts.KafkaBrokers,
			Topic:        opts.KafkaTopic,
			RequiredAcks: opts.KafkaAcks,
			Compression:  opts.KafkaCompression,
			Symbol:       profile.Session.Symbol,
		})
		if err != nil {
			return err
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}

	engine, err := protocol.NewEngine(profile, observer.Multi(sinks...))
	if err != nil {
		return err
	}

	var recorder *transport.Recorder
	if opts.CaptureDir != "" {
		var path string
		recorder, path, err = transport.OpenRecorder(opts.CaptureDir)
		if err != nil {
			return err
		}
		defer recorder.Close()
		log.Info("Capturing payloads", zap.String("path", path))
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCfg := transport.DialConfig{
		Endpoint: profile.Endpoint,
		Header:   http.Header{"User-Agent": {version.UserAgent()}},
		Timeout:  opts.DialTimeout,
	}
	if opts.Insecure {
		dialCfg.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	conn, err := transport.Dial(ctx, dialCfg)
	if err != nil {
		printFailure(cmd, "Connection failed", err)
		return err
	}
	defer conn.Close()

	tr := transport.New(conn, transport.Config{
		RemoteAddr: profile.Endpoint.Address(),
		Recorder:   recorder,
	})

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		// The session ending stops the metrics server too.
		defer cancel()
		return pipeline.New(engine).Run(runCtx, tr)
	})

	if opts.MetricsAddr != "" {
		srv := metrics.NewServer(opts.MetricsAddr, readiness(engine), logging.GetLogger())
		g.Go(func() error {
			return srv.Start(runCtx)
		})
	}

	if err := g.Wait(); err != nil {
		printFailure(cmd, "Session failed", err)
		return err
	}

	if color {
		fmt.Fprintln(out, ui.NewSuccessResult("Session ended",
			ui.Param{Key: "State", Value: engine.State().String()},
			ui.Param{Key: "Frames received", Value: strconv.Itoa(tr.Received())},
		).Render())
	}
	return nil
}

func applyEndpointOverrides(ep *config.Endpoint, opts *streamOptions) {
	if opts.Host != "" {
		ep.Host = opts.Host
	}
	if opts.Port != 0 {
		ep.Port = opts.Port
	}
	if opts.Plain {
		ep.TLS = false
	}
}

// readiness reports ready once the bootstrap has been sent.
func readiness(engine *protocol.Engine) metrics.ReadyChecker {
	return func() error {
		if !engine.Ready() {
			return fmt.Errorf("session is %s", engine.State())
		}
		return nil
	}
}

func printFailure(cmd *cobra.Command, title string, err error) {
	fmt.Fprintln(cmd.ErrOrStderr(), ui.NewFailureResult(title, err, transport.GetTroubleshootingHint(err)).Render())
}
