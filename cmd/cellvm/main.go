// cellvm runs RISC-V lock scripts against a transaction and its cells.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/telemetry"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &types.RunConfig{}
	var metrics *telemetry.MetricsServer

	if Commit == "none" {
		Commit = common.CommitHash()
	}
	rootCmd := &cobra.Command{
		Use:           "cellvm",
		Short:         "Script VM with transaction and cell mmap syscalls",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(cmd.ErrOrStderr(), cfg); err != nil {
				return err
			}
			if cfg.MetricsAddr != "" {
				s, err := telemetry.ServeMetrics(cfg.MetricsAddr)
				if err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
				metrics = s
			}
			if cfg.OTLP != "" {
				if err := telemetry.InitTracer(cmd.Context(), cfg.OTLP, "cellvm", Version); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if metrics != nil {
				if err := metrics.Close(ctx); err != nil {
					log.Warn(log.VMMonitoring, "metrics shutdown", "err", err)
				}
			}
			return telemetry.ShutdownTracer(ctx)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level (trace, debug, info, warn, error, crit)")
	flags.StringVar(&cfg.LogModules, "log-modules", "", "comma-separated modules with trace/debug output enabled")
	flags.BoolVar(&cfg.LogJson, "logjson", false, "log as JSON")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&cfg.OTLP, "otlp", "", "OTLP/HTTP collector host:port for traces")

	rootCmd.AddCommand(
		newBuildCmd(),
		newResolveCmd(cfg),
		newRunCmd(cfg),
		newDebugCmd(cfg),
	)
	return rootCmd
}

func initLogging(w io.Writer, cfg *types.RunConfig) error {
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.LogJson {
		log.SetDefault(log.NewLogger(log.NewJSONHandlerWithLevel(w, lvl)))
	} else {
		log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, false)))
	}
	log.EnableModules(cfg.LogModules)
	return nil
}

// readInput returns the contents of path, or of in when path is "" or "-".
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}
