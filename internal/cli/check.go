package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/poller"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/ui"
	"github.com/rileyhilliard/ddmatrix/internal/util"
	"github.com/spf13/cobra"
)

var (
	checkFiles     FileFlags
	checkNoKeyring bool
)

// checkCmd validates the metrics file and credentials without polling
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate metrics.json and credentials",
	Long: `Load metrics.json the way the dashboard does and list every metric with
its window and alert threshold, formatted as it would appear on the panel.
Credentials are resolved and shown masked.

Exits non-zero when the metrics file or credentials would stop the dashboard.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cfgFile, checkFiles, verbose)
		if err != nil {
			return err
		}
		return checkConfig(cmd.OutOrStdout(), settings, secretStores(settings, checkNoKeyring))
	},
}

func init() {
	AddFileFlags(checkCmd, &checkFiles)
	checkCmd.Flags().BoolVar(&checkNoKeyring, "no-keyring", false, "read secrets from the secrets file only")
	rootCmd.AddCommand(checkCmd)
}

func checkConfig(w io.Writer, settings *config.Settings, stores []secrets.Store) error {
	metrics, err := config.LoadMetrics(settings.MetricsFile)
	if err != nil {
		fmt.Fprintln(w, ui.Fail(settings.MetricsFile))
		return err
	}
	fmt.Fprintln(w, ui.Success(fmt.Sprintf("%s: %s, %d totalled",
		settings.MetricsFile, util.Count(len(metrics.Metrics), "metric", "metrics"), len(metrics.TotalledMetrics))))
	fmt.Fprintln(w)

	rows := metricRows(metrics, settings.Polling)
	titles := []string{"Metric", "Kind", "Window", "Alert above"}
	fmt.Fprintln(w, ui.RenderTable(ui.FitColumns(titles, rows, 32), rows))
	fmt.Fprintln(w)

	creds, err := secrets.Load(stores...)
	if err != nil {
		fmt.Fprintln(w, ui.Fail("credentials"))
		return err
	}
	fmt.Fprintln(w, ui.Success("dd_api "+secrets.Mask(creds.APIKey)))
	fmt.Fprintln(w, ui.Success("dd_app "+secrets.Mask(creds.AppKey)))
	if creds.SSID == "" {
		fmt.Fprintln(w, ui.Warn("no ssid; the host's existing connection will be used"))
	} else {
		fmt.Fprintln(w, ui.Success("ssid "+creds.SSID))
	}
	return nil
}

// metricRows renders each threshold exactly as the panel would show that
// value, so formatting mistakes are visible before deploying.
func metricRows(metrics *config.MetricsConfig, polling config.PollingConfig) [][]string {
	rows := make([][]string, 0, metrics.Len())
	for _, m := range metrics.Metrics {
		rows = append(rows, []string{
			m.MetricName,
			"latest",
			polling.Interval.String(),
			m.PrefixString + poller.FormatLatest(m.Query, m.HighThreshold, m.RoundingPlaces) + m.TrailingString,
		})
	}
	for _, m := range metrics.TotalledMetrics {
		rows = append(rows, []string{
			m.MetricName,
			"total",
			m.Window().String(),
			poller.FormatTotal(m.HighThreshold) + m.TrailingString,
		})
	}
	return rows
}
