package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/ui"
	"github.com/spf13/cobra"
)

// Environment variables read by init --non-interactive.
const (
	EnvAPIKey       = "DD_API_KEY"
	EnvAppKey       = "DD_APP_KEY"
	EnvSSID         = "DDMATRIX_SSID"
	EnvWiFiPassword = "DDMATRIX_WIFI_PASSWORD"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Dir            string // where metrics.json and secrets.yaml are written
	Overwrite      bool   // overwrite existing files without asking
	NonInteractive bool   // take credentials from the environment
	Keyring        bool   // also store credentials in the OS keyring
}

var initOpts InitOptions

// initCmd writes starter files
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter metrics.json and secrets.yaml",
	Long: `Create metrics.json with a few example queries and secrets.yaml with your
Datadog API and application keys. secrets.yaml is written with mode 0600.

With --non-interactive, credentials are read from DD_API_KEY, DD_APP_KEY,
DDMATRIX_SSID and DDMATRIX_WIFI_PASSWORD.

Examples:
  ddmatrix init
  ddmatrix init --keyring
  DD_API_KEY=... DD_APP_KEY=... ddmatrix init --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(cmd.OutOrStdout(), initOpts)
	},
}

func init() {
	initCmd.Flags().StringVar(&initOpts.Dir, "dir", ".", "directory to write the files into")
	initCmd.Flags().BoolVarP(&initOpts.Overwrite, "force", "f", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "read credentials from the environment")
	initCmd.Flags().BoolVar(&initOpts.Keyring, "keyring", false, "also store credentials in the OS keyring")
	rootCmd.AddCommand(initCmd)
}

// starterMetrics is written by init; each entry shows one formatting mode.
func starterMetrics() *config.MetricsConfig {
	return &config.MetricsConfig{
		Metrics: []config.MetricSpec{
			{
				Query:          "avg:system.cpu.user{*}",
				MetricName:     "CPU",
				TrailingString: "%",
				RoundingPlaces: 0,
				HighThreshold:  80,
			},
			{
				Query:          "avg:system.load.1{*}",
				MetricName:     "Load",
				RoundingPlaces: 2,
				HighThreshold:  4,
			},
			{
				Query:         "avg:system.disk.percent_usage{*}",
				MetricName:    "Disk",
				HighThreshold: 0.9,
			},
		},
		TotalledMetrics: []config.TotalledMetricSpec{
			{
				Query:          "sum:trace.http.request.errors{*}.as_count()",
				MetricName:     "Errors",
				TrailingString: " /24h",
				TimeRange:      86400,
				HighThreshold:  100,
			},
		},
	}
}

// Init writes metrics.json and secrets.yaml into opts.Dir.
func Init(w io.Writer, opts InitOptions) error {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	metricsPath := filepath.Join(opts.Dir, config.DefaultMetricsFile)
	secretsPath := filepath.Join(opts.Dir, config.DefaultSecretsFile)

	overwrite, err := confirmOverwrite(opts, metricsPath, secretsPath)
	if err != nil {
		return err
	}
	if !overwrite {
		fmt.Fprintln(w, "Cancelled.")
		return nil
	}

	var creds secrets.Secrets
	if opts.NonInteractive {
		creds = secretsFromEnv()
	} else if creds, err = promptSecrets(); err != nil {
		return err
	}

	if err := writeMetrics(metricsPath); err != nil {
		return err
	}
	fmt.Fprintln(w, ui.Success("Wrote "+metricsPath))

	if err := secrets.WriteFile(secretsPath, creds, true); err != nil {
		return err
	}
	fmt.Fprintln(w, ui.Success("Wrote "+secretsPath))

	if opts.Keyring {
		if err := secrets.NewKeyringStore(secrets.ServiceName).Save(creds); err != nil {
			return errors.WrapWithCode(err, errors.ErrSecrets,
				"Failed to save credentials to the keyring",
				"Drop --keyring to keep them in secrets.yaml only")
		}
		fmt.Fprintln(w, ui.Success("Saved credentials to the keyring"))
	}

	if creds.APIKey == "" || creds.AppKey == "" {
		fmt.Fprintln(w, ui.Warn("dd_api and dd_app are empty; fill them in before running"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next: edit metrics.json, then run 'ddmatrix check'.")
	return nil
}

// confirmOverwrite reports whether init may write its files.
func confirmOverwrite(opts InitOptions, paths ...string) (bool, error) {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 || opts.Overwrite {
		return true, nil
	}

	if opts.NonInteractive {
		return false, errors.New(errors.ErrConfig,
			"Already exists: "+strings.Join(existing, ", "),
			"Use --force to overwrite")
	}

	var overwrite bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite?", strings.Join(existing, " and "))).
				Value(&overwrite),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}
	return overwrite, nil
}

func secretsFromEnv() secrets.Secrets {
	return secrets.Secrets{
		SSID:     strings.TrimSpace(os.Getenv(EnvSSID)),
		Password: os.Getenv(EnvWiFiPassword),
		APIKey:   strings.TrimSpace(os.Getenv(EnvAPIKey)),
		AppKey:   strings.TrimSpace(os.Getenv(EnvAppKey)),
	}
}

func promptSecrets() (secrets.Secrets, error) {
	var s secrets.Secrets
	required := func(name string) func(string) error {
		return func(v string) error {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Datadog API key").
				EchoMode(huh.EchoModePassword).
				Value(&s.APIKey).
				Validate(required("API key")),
			huh.NewInput().
				Title("Datadog application key").
				EchoMode(huh.EchoModePassword).
				Value(&s.AppKey).
				Validate(required("application key")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("WiFi SSID (optional)").
				Description("Leave empty to use the host's existing connection").
				Value(&s.SSID),
			huh.NewInput().
				Title("WiFi password (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&s.Password),
		),
	)

	if err := form.Run(); err != nil {
		return s, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.AppKey = strings.TrimSpace(s.AppKey)
	s.SSID = strings.TrimSpace(s.SSID)
	return s, nil
}

func writeMetrics(path string) error {
	data, err := json.MarshalIndent(starterMetrics(), "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate metrics file",
			"This shouldn't happen - please report this bug")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check the directory exists and is writable")
	}
	return nil
}
