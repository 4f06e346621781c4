// Tvstream is a streaming client for the TradingView real-time gateway.
//
// It dials the gateway, bootstraps a quote, chart, series and study session
// from a YAML session profile, answers heartbeats and prints every update as
// it arrives. Updates can also be published to Kafka and counted in
// Prometheus.
//
// Usage:
//
//	tvstream stream [flags]
//	tvstream analyze <capture.jsonl>
//	tvstream config init|show
//
// See 'tvstream <command> --help' for available options.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/holtholcomb/tvstream/internal/logging"
	"github.com/holtholcomb/tvstream/internal/version"
)

// envPrefix namespaces every flag as an environment variable:
// --metrics-addr becomes TVSTREAM_METRICS_ADDR.
const envPrefix = "TVSTREAM"

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tvstream",
	Short: "TradingView real-time streaming client",
	Long: `A client for the TradingView real-time WebSocket gateway.

tvstream connects to the gateway, waits for the server hello, sends the session
bootstrap from the session profile (auth token, quote fields, symbol, candle
series and indicator study) and then streams quote, candle and study updates.

Every flag can also be set through the environment with the TVSTREAM_ prefix,
for example TVSTREAM_LOG_LEVEL=debug.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "Session profile path (default: $XDG_CONFIG_HOME/tvstream/session.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); empty disables logging")
	rootCmd.PersistentFlags().String("log-format", string(logging.FormatConsole), "Log format (console, json)")
}

// newViper binds the command's flags, including inherited persistent flags,
// to a fresh viper instance that also reads TVSTREAM_* variables.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

func initLogging(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}

	format := logging.Format(strings.ToLower(v.GetString("log-format")))
	switch format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (expected console or json)", format)
	}

	if err := logging.InitializeWithFormat(v.GetString("log-level"), format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tvstream %s\n", version.Full())
	},
}
