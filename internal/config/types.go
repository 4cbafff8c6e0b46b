package config

import (
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/logger"
)

// Settings holds the runtime settings read from ddmatrix.yaml.
// Every field has a default, so the file itself is optional.
type Settings struct {
	MetricsFile string         `mapstructure:"metrics_file"`
	SecretsFile string         `mapstructure:"secrets_file"`
	Polling     PollingConfig  `mapstructure:"polling"`
	Recovery    RecoveryConfig `mapstructure:"recovery"`
	Display     DisplayConfig  `mapstructure:"display"`
	Network     NetworkConfig  `mapstructure:"network"`
	API         APIConfig      `mapstructure:"api"`
	Log         logger.Config  `mapstructure:"log"`
}

// PollingConfig controls query windows, dwell time and rate-limit backoff.
type PollingConfig struct {
	// Interval is the lookback window for single-value metrics.
	Interval time.Duration `mapstructure:"interval"`

	// Delay is slept after every poll; it is the dwell time of each metric.
	Delay time.Duration `mapstructure:"delay"`

	// RateLimitFloor is the remaining-quota level below which we back off.
	RateLimitFloor int `mapstructure:"rate_limit_floor"`

	// RateLimitBackoff is how long to sleep once the floor is crossed.
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`
}

// RecoveryConfig controls the restart policy.
type RecoveryConfig struct {
	// ConfigCooldown is waited before restarting on a bad metrics file.
	ConfigCooldown time.Duration `mapstructure:"config_cooldown"`

	// TimeErrorDelay is how long "TimeERR" stays on screen before restarting.
	TimeErrorDelay time.Duration `mapstructure:"time_error_delay"`

	// TimeSanityEpoch is a unix timestamp; any clock earlier than this is
	// treated as a time source fault.
	TimeSanityEpoch int64 `mapstructure:"time_sanity_epoch"`
}

// DisplayConfig describes the LED panel.
type DisplayConfig struct {
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	Logo     string        `mapstructure:"logo"`
	FPS      int           `mapstructure:"fps"`
	BootStep time.Duration `mapstructure:"boot_step"`
}

// NetworkConfig controls association, probing and time sync.
type NetworkConfig struct {
	Interface    string        `mapstructure:"interface"`
	ProbeHost    string        `mapstructure:"probe_host"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	NTPServer    string        `mapstructure:"ntp_server"`
	RetryPause   time.Duration `mapstructure:"retry_pause"`
}

// APIConfig points at the metrics API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Defaults, matching the values the dashboard has always shipped with.
const (
	DefaultMetricsFile      = "metrics.json"
	DefaultSecretsFile      = "secrets.yaml"
	DefaultInterval         = 600 * time.Second
	DefaultDelay            = 3 * time.Second
	DefaultRateLimitFloor   = 500
	DefaultRateLimitBackoff = 300 * time.Second
	DefaultConfigCooldown   = 1800 * time.Second
	DefaultTimeErrorDelay   = 10 * time.Second
	DefaultTimeSanityEpoch  = 1619250585
	DefaultWidth            = 64
	DefaultHeight           = 32
	DefaultFPS              = 20
	DefaultBootStep         = 65 * time.Millisecond
	DefaultProbeHost        = "google.com"
	DefaultProbeTimeout     = 5 * time.Second
	DefaultNTPServer        = "pool.ntp.org"
	DefaultRetryPause       = time.Second
	DefaultBaseURL          = "https://api.datadoghq.com"
	DefaultAPITimeout       = 30 * time.Second
)

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		MetricsFile: DefaultMetricsFile,
		SecretsFile: DefaultSecretsFile,
		Polling: PollingConfig{
			Interval:         DefaultInterval,
			Delay:            DefaultDelay,
			RateLimitFloor:   DefaultRateLimitFloor,
			RateLimitBackoff: DefaultRateLimitBackoff,
		},
		Recovery: RecoveryConfig{
			ConfigCooldown:  DefaultConfigCooldown,
			TimeErrorDelay:  DefaultTimeErrorDelay,
			TimeSanityEpoch: DefaultTimeSanityEpoch,
		},
		Display: DisplayConfig{
			Width:    DefaultWidth,
			Height:   DefaultHeight,
			Logo:     "logo.bmp",
			FPS:      DefaultFPS,
			BootStep: DefaultBootStep,
		},
		Network: NetworkConfig{
			ProbeHost:    DefaultProbeHost,
			ProbeTimeout: DefaultProbeTimeout,
			NTPServer:    DefaultNTPServer,
			RetryPause:   DefaultRetryPause,
		},
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Log: logger.Config{
			Level:  "info",
			Output: "stderr",
		},
	}
}

// MetricSpec is one single-value metric from metrics.json.
type MetricSpec struct {
	Query          string  `mapstructure:"query" json:"query"`
	MetricName     string  `mapstructure:"metric_name" json:"metric_name"`
	TrailingString string  `mapstructure:"trailing_string" json:"trailing_string"`
	PrefixString   string  `mapstructure:"prefix_string" json:"prefix_string"`
	RoundingPlaces int     `mapstructure:"rounding_places" json:"rounding_places"`
	HighThreshold  float64 `mapstructure:"high_threshold" json:"high_threshold"`
}

// TotalledMetricSpec is one aggregate metric from metrics.json.
// TimeRange is the summation window in seconds.
type TotalledMetricSpec struct {
	Query          string  `mapstructure:"query" json:"query"`
	MetricName     string  `mapstructure:"metric_name" json:"metric_name"`
	TrailingString string  `mapstructure:"trailing_string" json:"trailing_string"`
	TimeRange      int64   `mapstructure:"time_range" json:"time_range"`
	HighThreshold  float64 `mapstructure:"high_threshold" json:"high_threshold"`
}

// Window returns TimeRange as a duration.
func (s TotalledMetricSpec) Window() time.Duration {
	return time.Duration(s.TimeRange) * time.Second
}

// MetricsConfig is the parsed metrics.json. It is read-only once loaded.
type MetricsConfig struct {
	Metrics         []MetricSpec         `mapstructure:"metrics" json:"metrics"`
	TotalledMetrics []TotalledMetricSpec `mapstructure:"totalled_metrics" json:"totalled_metrics"`
}

// Len returns the total number of configured metrics.
func (m *MetricsConfig) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Metrics) + len(m.TotalledMetrics)
}
