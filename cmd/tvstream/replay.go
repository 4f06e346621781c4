package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/server"
	"github.com/holtholcomb/tvstream/internal/transport"
	"github.com/holtholcomb/tvstream/internal/ui"
)

// Replay command and flags
var (
	replayListen     string
	replayTLS        bool
	replayCert       string
	replayKey        string
	replaySpeed      float64
	replayCaptureDir string
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.jsonl>",
	Short: "Serve a capture as a local gateway",
	Long: `Start a local WebSocket server that plays the inbound payloads of a capture
back to every client that connects, then closes with code 1000.

Point 'tvstream stream' at it to exercise the client offline. The payloads
the client sends back can be captured with --capture-dir.`,
	Example: `  # Replay at the captured pace
  tvstream replay ./captures/capture-20260101-120000.jsonl

  # In another terminal
  tvstream stream --host 127.0.0.1 --port 8765 --plain

  # Replay over TLS with a self-signed certificate, ten times faster
  tvstream replay capture.jsonl --tls --speed 10
  tvstream stream --host 127.0.0.1 --port 8765 --insecure`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayListen, "listen", "127.0.0.1:8765", "Address to listen on")
	replayCmd.Flags().BoolVar(&replayTLS, "tls", false, "Serve TLS (self-signed unless --cert and --key are given)")
	replayCmd.Flags().StringVar(&replayCert, "cert", "", "Path to TLS certificate file")
	replayCmd.Flags().StringVar(&replayKey, "key", "", "Path to TLS private key file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "Replay speed factor (0 sends without delay)")
	replayCmd.Flags().StringVar(&replayCaptureDir, "capture-dir", "", "Directory to capture client payloads (disabled if empty)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	records, err := transport.ReadCapture(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	steps := server.ScriptFromCapture(records)
	if len(steps) == 0 {
		return fmt.Errorf("capture %s has no inbound payloads", args[0])
	}

	cfg := server.Config{
		Addr:     replayListen,
		TLS:      replayTLS || replayCert != "",
		CertPath: replayCert,
		KeyPath:  replayKey,
		Steps:    steps,
		Speed:    replaySpeed,
	}

	if replayCaptureDir != "" {
		recorder, path, err := transport.OpenRecorder(replayCaptureDir)
		if err != nil {
			return err
		}
		defer recorder.Close()
		cfg.Recorder = recorder
		logging.Info("Capturing client payloads", zap.String("path", path))
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("tvstream", "tvstream replay",
		ui.Param{Key: "Capture", Value: args[0]},
		ui.Param{Key: "Listening", Value: srv.Addr().String()},
		ui.Param{Key: "TLS", Value: strconv.FormatBool(cfg.TLS)},
		ui.Param{Key: "Payloads", Value: strconv.Itoa(len(steps))},
		ui.Param{Key: "Speed", Value: strconv.FormatFloat(replaySpeed, 'g', -1, 64)},
	).Render())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.NewSuccessResult("Replay server stopped",
		ui.Param{Key: "Sessions", Value: strconv.Itoa(srv.Sessions())},
	).Render())
	return nil
}
