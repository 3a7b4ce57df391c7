// Command graphtool prepares road network files and plans routes offline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var flagLogLevel string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "graphtool",
		Short:        "Road network and route planning tools for the segment router",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug|info|warn|error")

	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newRecentCmd())
	return rootCmd
}

// newLogger writes to stderr so command output on stdout stays machine readable.
func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
