package cli

import (
	"fmt"
	"net"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/spf13/cobra"
)

// FileFlags override the file paths named in settings.
type FileFlags struct {
	Metrics string
	Secrets string
}

// AddFileFlags registers --metrics and --secrets on a command.
func AddFileFlags(cmd *cobra.Command, flags *FileFlags) {
	cmd.Flags().StringVar(&flags.Metrics, "metrics", "", "metrics file (default from settings, metrics.json)")
	cmd.Flags().StringVar(&flags.Secrets, "secrets", "", "secrets file (default from settings, secrets.yaml)")
}

// loadSettings finds and loads settings, then applies flag overrides.
func loadSettings(explicit string, files FileFlags, debug bool) (*config.Settings, error) {
	path, err := config.FindSettings(explicit)
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}

	if files.Metrics != "" {
		settings.MetricsFile = files.Metrics
	}
	if files.Secrets != "" {
		settings.SecretsFile = files.Secrets
	}
	if debug {
		settings.Log.Debug = true
	}
	return settings, nil
}

// ValidateListenAddr checks a host:port for the telemetry listener.
// An empty address disables the listener.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a listen address", addr),
			"Try something like :9464 or 127.0.0.1:9464")
	}
	return nil
}
