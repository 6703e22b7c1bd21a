// Command phx2mth5 converts Phoenix Geophysics MTU-5C recordings into MTH5
// archives, either one station at a time or as a long-running watch
// service.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnetotellurics/phx2mth5/internal/observability"
)

var (
	logLevel  string
	logFormat string
)

func main() {
	root := &cobra.Command{
		Use:          "phx2mth5",
		Short:        "Convert Phoenix MTU-5C recordings to MTH5 archives",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(
		newConvertCommand(),
		newWatchCommand(),
		newInspectCommand(),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return observability.NewLogger(logLevel, logFormat)
}
