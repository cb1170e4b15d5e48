package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/config"
	"github.com/example/face-auth/internal/logging"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg    config.Config
	logger *zap.Logger

	logLevel    string
	detector    string
	cascadePath string
	threshold   float64
)

var rootCmd = &cobra.Command{
	Use:           "faceauth",
	Short:         "Face registration and verification service",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("detector") {
			cfg.Detector = detector
		}
		if flags.Changed("cascade") {
			cfg.CascadePath = cascadePath
		}
		if flags.Changed("threshold") {
			cfg.MatchThreshold = threshold
		}

		logger, err = logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&detector, "detector", "pigo", "face detector backend: pigo, haar or contrast")
	pf.StringVar(&cascadePath, "cascade", "", "detector cascade file (pigo default: built-in facefinder)")
	pf.Float64Var(&threshold, "threshold", 0.8, "correlation a probe must exceed to verify")
}
