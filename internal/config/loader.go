package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/spf13/viper"
)

const (
	// SettingsFileName is the default settings file name.
	SettingsFileName = "ddmatrix.yaml"
	// GlobalConfigDir is the directory for global settings.
	GlobalConfigDir = ".config/ddmatrix"
	// GlobalConfigFile is the global settings file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. DDMATRIX_POLLING_DELAY=5s.
	EnvPrefix = "DDMATRIX"
)

// FindSettings locates the settings file using the search order:
// 1. Explicit path (from --config flag)
// 2. ddmatrix.yaml in current directory
// 3. ~/.config/ddmatrix/config.yaml
//
// Returns the path to the settings file, or empty string if not found.
func FindSettings(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified settings file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access settings file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if _, err := os.Stat(SettingsFileName); err == nil {
		return SettingsFileName, nil
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadSettings reads settings from path, layering defaults underneath and
// DDMATRIX_* environment variables on top. An empty path yields defaults
// plus environment overrides.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setSettingsDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read settings file "+path,
				"Check the file exists and is valid YAML")
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid settings format",
			"Durations must be strings like 3s or 10m")
	}

	if err := ValidateSettings(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setSettingsDefaults registers every key so that AutomaticEnv can find it.
func setSettingsDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("secrets_file", d.SecretsFile)

	v.SetDefault("polling.interval", d.Polling.Interval)
	v.SetDefault("polling.delay", d.Polling.Delay)
	v.SetDefault("polling.rate_limit_floor", d.Polling.RateLimitFloor)
	v.SetDefault("polling.rate_limit_backoff", d.Polling.RateLimitBackoff)

	v.SetDefault("recovery.config_cooldown", d.Recovery.ConfigCooldown)
	v.SetDefault("recovery.time_error_delay", d.Recovery.TimeErrorDelay)
	v.SetDefault("recovery.time_sanity_epoch", d.Recovery.TimeSanityEpoch)

	v.SetDefault("display.width", d.Display.Width)
	v.SetDefault("display.height", d.Display.Height)
	v.SetDefault("display.logo", d.Display.Logo)
	v.SetDefault("display.fps", d.Display.FPS)
	v.SetDefault("display.boot_step", d.Display.BootStep)

	v.SetDefault("network.interface", d.Network.Interface)
	v.SetDefault("network.probe_host", d.Network.ProbeHost)
	v.SetDefault("network.probe_timeout", d.Network.ProbeTimeout)
	v.SetDefault("network.ntp_server", d.Network.NTPServer)
	v.SetDefault("network.retry_pause", d.Network.RetryPause)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.time_format", d.Log.TimeFormat)
}

// Required keys per metrics.json entry.
var (
	metricKeys         = []string{"query", "metric_name", "trailing_string", "prefix_string", "rounding_places", "high_threshold"}
	totalledMetricKeys = []string{"query", "metric_name", "trailing_string", "time_range", "high_threshold"}
)

// LoadMetrics reads and validates the metrics file. Any failure is a
// CONFIG error: missing file, malformed JSON, or an entry missing a field.
func LoadMetrics(path string) (*MetricsConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Metrics file not found: "+path,
				"Run 'ddmatrix init' to create one, or point --metrics at it")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse metrics file "+path,
			"Check the file is valid JSON")
	}

	if err := requireEntries(v, "metrics", metricKeys); err != nil {
		return nil, err
	}
	if err := requireEntries(v, "totalled_metrics", totalledMetricKeys); err != nil {
		return nil, err
	}

	cfg := &MetricsConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid metrics file format",
			"Check field types in "+path)
	}

	if err := ValidateMetrics(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireEntries checks that key is a list and every entry carries all fields.
func requireEntries(v *viper.Viper, key string, fields []string) error {
	if !v.IsSet(key) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Metrics file has no '%s' list", key),
			fmt.Sprintf("Add \"%s\": [] even if you have none", key))
	}

	raw, ok := v.Get(key).([]interface{})
	if !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' must be a list", key),
			"Wrap the entries in [ ]")
	}

	for i, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s[%d] is not an object", key, i),
				"Each entry must be a JSON object")
		}
		for _, field := range fields {
			if _, ok := entry[field]; !ok {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("%s[%d] is missing '%s'", key, i, field),
					fmt.Sprintf("Every %s entry needs: %s", key, strings.Join(fields, ", ")))
			}
		}
	}
	return nil
}
