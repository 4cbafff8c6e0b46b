package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkMetricsJSON = `{
  "metrics": [
    {"query": "avg:system.cpu.user{*}", "metric_name": "CPU", "trailing_string": "%",
     "prefix_string": "", "rounding_places": 0, "high_threshold": 90},
    {"query": "avg:system.disk.percent_usage{*}", "metric_name": "Disk", "trailing_string": "",
     "prefix_string": "", "rounding_places": 0, "high_threshold": 0.85}
  ],
  "totalled_metrics": [
    {"query": "sum:orders{*}.as_count()", "metric_name": "Orders", "trailing_string": " /d",
     "time_range": 86400, "high_threshold": 1000.5}
  ]
}`

func checkSettings(t *testing.T, body string) *config.Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	s := config.DefaultSettings()
	s.MetricsFile = path
	return s
}

func goodStore() secrets.Store {
	return secrets.NewMockStore(map[string]string{
		secrets.KeyAPI:  "abcdef123456",
		secrets.KeyApp:  "fedcba654321",
		secrets.KeySSID: "office",
	})
}

func TestCheckConfig(t *testing.T) {
	s := checkSettings(t, checkMetricsJSON)

	var buf bytes.Buffer
	require.NoError(t, checkConfig(&buf, s, []secrets.Store{goodStore()}))
	out := buf.String()

	assert.Contains(t, out, "2 metrics, 1 totalled")
	assert.Contains(t, out, "CPU")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "85%")
	assert.Contains(t, out, "10m0s")
	assert.Contains(t, out, "24h0m0s")
	assert.Contains(t, out, "1000 /d")
	assert.Contains(t, out, "********3456")
	assert.NotContains(t, out, "abcdef123456")
	assert.Contains(t, out, "ssid office")
}

func TestCheckConfig_NoSSIDWarns(t *testing.T) {
	s := checkSettings(t, checkMetricsJSON)
	store := secrets.NewMockStore(map[string]string{
		secrets.KeyAPI: "abcdef123456",
		secrets.KeyApp: "fedcba654321",
	})

	var buf bytes.Buffer
	require.NoError(t, checkConfig(&buf, s, []secrets.Store{store}))
	assert.Contains(t, buf.String(), ui.SymbolWarn+" no ssid")
}

func TestCheckConfig_BadMetrics(t *testing.T) {
	s := checkSettings(t, `{"metrics": [{"query": "q"}], "totalled_metrics": []}`)

	var buf bytes.Buffer
	err := checkConfig(&buf, s, []secrets.Store{goodStore()})
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, buf.String(), ui.SymbolFail)
}

func TestCheckConfig_MissingCredentials(t *testing.T) {
	s := checkSettings(t, checkMetricsJSON)

	var buf bytes.Buffer
	err := checkConfig(&buf, s, []secrets.Store{secrets.NewMockStore(nil)})
	assert.True(t, errors.IsCode(err, errors.ErrSecrets))
	assert.Contains(t, buf.String(), ui.SymbolFail+" credentials")
}

func TestMetricRows(t *testing.T) {
	metrics := &config.MetricsConfig{
		Metrics: []config.MetricSpec{
			{Query: "avg:load{*}", MetricName: "Load", PrefixString: "~", RoundingPlaces: 2, HighThreshold: 4},
		},
		TotalledMetrics: []config.TotalledMetricSpec{
			{Query: "sum:e{*}", MetricName: "Errors", TimeRange: 3600, HighThreshold: 99.9},
		},
	}

	rows := metricRows(metrics, config.DefaultSettings().Polling)
	assert.Equal(t, [][]string{
		{"Load", "latest", "10m0s", "~4.00"},
		{"Errors", "total", "1h0m0s", "99"},
	}, rows)
}
