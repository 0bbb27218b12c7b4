package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/volcheck/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	logLevel  string
	logFormat string
	useSyslog bool

	outputFormat string
	noHeaders    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "volcheck",
	Short: "Volcheck - block volume lifecycle validator",
	Long: `Volcheck exercises the block volume lifecycle of the instance it runs on.

A run creates a volume, attaches it, finds the new block device, formats
and mounts it, writes a random test file, snapshots the volume, restores
the snapshot and checks the data survived, then attaches several volumes
at once and backs them up together. Everything the run creates is
removed again, in reverse order, whether the run passes or fails.

Volumes are managed through the RightScale API or, for development, a
local libvirt domain.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.TextFormat, "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&useSyslog, "syslog", false, "Also send warnings and errors to syslog")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(testConnCmd)
}

// newLogger builds the logger from the persistent flags. Logs go to stderr
// so stdout carries only command output.
func newLogger() (*logrus.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  logLevel,
		Format: logFormat,
		Syslog: useSyslog,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return logger, nil
}
