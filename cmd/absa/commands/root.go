package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ReviewAspects/internal/app"
	"ReviewAspects/internal/config"
	"ReviewAspects/internal/logging"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "absa",
	Short: "Aspect-based sentiment labeling for restaurant reviews",
	Long: `Labels restaurant reviews with a sentiment for each of six aspects
(general, food, price, ambience, service, location) using a language model,
and keeps a warehouse table of labeled reviews up to date incrementally.

Examples:
  absa run
  absa schedule --config absa.yaml
  absa rate "The pasta was great but the waiter was rude."
  absa chat
  absa history --limit 5`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default $ABSA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// newApplication loads configuration and builds the application for one command.
func newApplication() *app.Application {
	cfg := config.Load(configFile)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, &logger)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
