package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/datadog"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/rileyhilliard/ddmatrix/internal/poller"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/ui"
	"github.com/spf13/cobra"
)

var (
	previewFiles     FileFlags
	previewNoKeyring bool
	previewWidth     int
)

// previewCmd queries every metric once and prints what the panel would show
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Query every metric once and print the result",
	Long: `Run each query in metrics.json once, without the panel or the network
bootstrap, and print the value as the panel would render it along with a
trend line of the returned points.

Uses the host's existing network connection and clock.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cfgFile, previewFiles, verbose)
		if err != nil {
			return err
		}
		metrics, err := config.LoadMetrics(settings.MetricsFile)
		if err != nil {
			return err
		}
		creds, err := secrets.Load(secretStores(settings, previewNoKeyring)...)
		if err != nil {
			return err
		}

		client := datadog.NewClient(creds.APIKey, creds.AppKey,
			datadog.WithBaseURL(settings.API.BaseURL),
			datadog.WithTimeout(settings.API.Timeout),
			datadog.WithLogger(logger.New("api")))
		defer client.Close()

		return preview(cmd.Context(), cmd.OutOrStdout(), client, metrics, settings.Polling, time.Now(), previewWidth)
	},
}

func init() {
	AddFileFlags(previewCmd, &previewFiles)
	previewCmd.Flags().BoolVar(&previewNoKeyring, "no-keyring", false, "read secrets from the secrets file only")
	previewCmd.Flags().IntVar(&previewWidth, "width", 24, "number of points in the trend line")
	rootCmd.AddCommand(previewCmd)
}

// previewLine is one printed row.
type previewLine struct {
	name   string
	value  string
	status string
	trend  string
}

func preview(ctx context.Context, w io.Writer, api poller.Querier, metrics *config.MetricsConfig,
	polling config.PollingConfig, now time.Time, width int) error {
	lines := make([]previewLine, 0, metrics.Len())
	var quota datadog.RateLimit

	for _, m := range metrics.Metrics {
		resp, err := api.Query(ctx, m.Query, now.Add(-polling.Interval), now)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := previewLine{name: m.MetricName}
		if err == nil {
			quota = latestQuota(quota, resp)
			var v float64
			if v, err = poller.LastPoint(resp); err == nil {
				line.value = m.PrefixString + poller.FormatLatest(m.Query, v, m.RoundingPlaces) + m.TrailingString
				line.status = thresholdStatus(v, m.HighThreshold,
					m.PrefixString+poller.FormatLatest(m.Query, m.HighThreshold, m.RoundingPlaces)+m.TrailingString)
				line.trend = ui.Sparkline(seriesValues(resp), width, v > m.HighThreshold)
			}
		}
		if err != nil {
			line.status = failureStatus(err)
		}
		lines = append(lines, line)
	}

	for _, m := range metrics.TotalledMetrics {
		resp, err := api.Query(ctx, m.Query, now.Add(-m.Window()), now)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := previewLine{name: m.MetricName}
		if err == nil {
			quota = latestQuota(quota, resp)
			var sum float64
			if sum, err = poller.SumPoints(resp); err == nil {
				line.value = poller.FormatTotal(sum) + m.TrailingString
				line.status = thresholdStatus(sum, m.HighThreshold, poller.FormatTotal(m.HighThreshold)+m.TrailingString)
				line.trend = ui.Sparkline(seriesValues(resp), width, sum > m.HighThreshold)
			}
		}
		if err != nil {
			line.status = failureStatus(err)
		}
		lines = append(lines, line)
	}

	writePreview(w, lines)
	if quota.Known {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.MutedStyle.Render(fmt.Sprintf("Rate limit: %d of %d remaining, period %ds",
			quota.Remaining, quota.Limit, quota.Period)))
	}
	return nil
}

func latestQuota(prev datadog.RateLimit, resp *datadog.Response) datadog.RateLimit {
	if resp != nil && resp.RateLimit.Known {
		return resp.RateLimit
	}
	return prev
}

func thresholdStatus(v, threshold float64, shown string) string {
	if v > threshold {
		return ui.Fail("above " + shown)
	}
	return ui.Success("ok")
}

func failureStatus(err error) string {
	if errors.IsCode(err, errors.ErrNoData) {
		return ui.Warn("no data")
	}
	if code := errors.CodeOf(err); code != "" {
		return ui.Fail(strings.ToLower(code) + " error")
	}
	return ui.Fail("error")
}

// seriesValues returns the non-null points of the first series.
func seriesValues(resp *datadog.Response) []float64 {
	if resp == nil || len(resp.Series) == 0 {
		return nil
	}
	values := make([]float64, 0, len(resp.Series[0].Pointlist))
	for _, p := range resp.Series[0].Pointlist {
		if !p.Null {
			values = append(values, p.Value)
		}
	}
	return values
}

// writePreview aligns columns by display width, which ignores ANSI styling.
func writePreview(w io.Writer, lines []previewLine) {
	var nameW, valueW, statusW int
	for _, l := range lines {
		nameW = max(nameW, lipgloss.Width(l.name))
		valueW = max(valueW, lipgloss.Width(l.value))
		statusW = max(statusW, lipgloss.Width(l.status))
	}
	for _, l := range lines {
		row := strings.Join([]string{
			pad(l.name, nameW),
			pad(l.value, valueW),
			pad(l.status, statusW),
			l.trend,
		}, "  ")
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}
