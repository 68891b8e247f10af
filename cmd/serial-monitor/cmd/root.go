package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luhtfiimanal/go-linux-serial/internal/logger"
	"github.com/luhtfiimanal/go-linux-serial/monitor"
)

// version is overridden at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

// rootCmd runs the monitor against the fixed device.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serial-monitor",
		Short: "Print timestamped lines from /dev/ttyUSB0 for 20 seconds.",
		Long: `Opens /dev/ttyUSB0 at 115200 baud, discards stale input, and prints every
non-empty line received during the next 20 seconds prefixed with the local
time as [HH:MM:SS]. Press Ctrl+C to stop early.

The device, baud rate and duration are fixed.`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = logger.WithName(ctx, "serial-monitor")

			m := monitor.New(monitor.DefaultConfig(), monitor.WithOutput(cmd.OutOrStdout()))

			// Failures are already printed; the exit status stays 0.
			if err := m.Run(ctx); err != nil {
				logger.DebugKV(ctx, "monitor finished", "error", err)
			}

			return nil
		},
	}
}

// Execute runs the serial-monitor CLI and exits with non-zero status on usage errors.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
