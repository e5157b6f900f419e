// Package config provides configuration management for the fleet console.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: FLEET_<SECTION>_<KEY> (e.g., FLEET_INVENTORY_PATH)
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	v *viper.Viper
}

// NewWatcher loads the configuration like Load and returns a watcher for it.
// Nothing is watched until Start is called.
func NewWatcher(configPath string) (*Watcher, *Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return &Watcher{v: v}, cfg, nil
}

// Start watches the file and calls onChange with every reloaded configuration.
// A reload that fails to decode or validate is passed as an error; callers
// keep their previous configuration in that case.
func (w *Watcher) Start(onChange func(cfg *Config, err error)) {
	w.v.OnConfigChange(func(fsnotify.Event) {
		onChange(decode(w.v))
	})
	w.v.WatchConfig()
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("datasources.victoriametrics.timeout", 30*time.Second)

	// AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("inventory.path", "")
	v.SetDefault("inventory.counters", "configs/counters.yaml")

	v.SetDefault("inspection.concurrency", 20)
	v.SetDefault("inspection.timeout", 30*time.Second)

	v.SetDefault("thresholds.cpu_usage.warning", 80.0)
	v.SetDefault("thresholds.cpu_usage.critical", 95.0)
	v.SetDefault("thresholds.memory_usage.warning", 85.0)
	v.SetDefault("thresholds.memory_usage.critical", 95.0)

	v.SetDefault("severity_filter.hidden", []string{})

	v.SetDefault("report.output_dir", "./reports")
	v.SetDefault("report.formats", []string{"excel", "html"})
	v.SetDefault("report.filename_template", "fleet_report_{{.Date}}")
	v.SetDefault("report.timezone", "UTC")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("http.retry.max_retries", 3)
	v.SetDefault("http.retry.base_delay", 1*time.Second)

	v.SetDefault("exporter.listen", ":9108")
	v.SetDefault("exporter.path", "/metrics")
	v.SetDefault("exporter.interval", 30*time.Second)
}
