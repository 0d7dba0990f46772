package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/bootgate/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:          "bootgate",
	Short:        "Boot-time migration gate for PostgreSQL-backed services",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pendingCmd)
}

// newLogger builds the stderr logger: text for interactive terminals, JSON
// for supervisors and log aggregators.
func newLogger() *slog.Logger {
	if ui.LogFormat() == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
