package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/errors"
)

// ValidateMetrics checks the parsed metrics file for values the pollers
// cannot work with.
func ValidateMetrics(cfg *MetricsConfig) error {
	if cfg.Len() == 0 {
		return errors.New(errors.ErrConfig,
			"Metrics file has no metrics to show",
			"Add at least one entry to 'metrics' or 'totalled_metrics'")
	}

	for i, m := range cfg.Metrics {
		if strings.TrimSpace(m.Query) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("metrics[%d] has an empty query", i),
				"Copy the query from the metric's JSON tab in the Datadog UI")
		}
		if strings.TrimSpace(m.MetricName) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("metrics[%d] has an empty metric_name", i),
				"metric_name is the title shown above the value")
		}
	}

	for i, m := range cfg.TotalledMetrics {
		if strings.TrimSpace(m.Query) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("totalled_metrics[%d] has an empty query", i),
				"Copy the query from the metric's JSON tab in the Datadog UI")
		}
		if strings.TrimSpace(m.MetricName) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("totalled_metrics[%d] has an empty metric_name", i),
				"metric_name is the title shown above the value")
		}
		if m.TimeRange <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("totalled_metrics[%d] has time_range %d", i, m.TimeRange),
				"time_range is the summation window in seconds, e.g. 86400 for a day")
		}
	}

	return nil
}

// ValidateSettings checks runtime settings.
func ValidateSettings(s *Settings) error {
	if s.Display.Width <= 0 || s.Display.Height <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Display size %dx%d is invalid", s.Display.Width, s.Display.Height),
			"The panel is 64x32; set display.width and display.height to positive values")
	}
	if s.Display.FPS <= 0 {
		return errors.New(errors.ErrConfig,
			"display.fps must be positive",
			"Try 20")
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"polling.interval", s.Polling.Interval},
		{"polling.delay", s.Polling.Delay},
		{"polling.rate_limit_backoff", s.Polling.RateLimitBackoff},
		{"recovery.config_cooldown", s.Recovery.ConfigCooldown},
		{"recovery.time_error_delay", s.Recovery.TimeErrorDelay},
		{"network.probe_timeout", s.Network.ProbeTimeout},
		{"api.timeout", s.API.Timeout},
	}
	for _, d := range durations {
		if d.val < 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s cannot be negative (%s)", d.key, d.val),
				"Use a duration like 3s or 10m")
		}
	}

	if s.Polling.Interval == 0 {
		return errors.New(errors.ErrConfig,
			"polling.interval must be greater than zero",
			"The default lookback window is 10m")
	}

	if !strings.HasPrefix(s.API.BaseURL, "http://") && !strings.HasPrefix(s.API.BaseURL, "https://") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("api.base_url %q is not an http(s) URL", s.API.BaseURL),
			"For the EU site use https://api.datadoghq.eu")
	}

	return nil
}
