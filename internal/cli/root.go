package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ddmatrix",
	Short: "Datadog metrics on a 64x32 LED matrix",
	Long: `ddmatrix polls the Datadog metrics API and cycles the results across a
64x32 LED panel, one metric at a time.

Quick start:
  ddmatrix init                 # Write metrics.json and secrets.yaml
  ddmatrix check                # Validate the metrics file
  ddmatrix preview              # Query each metric once
  ddmatrix run                  # Start the dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"settings file (default ./ddmatrix.yaml, then ~/.config/ddmatrix/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
