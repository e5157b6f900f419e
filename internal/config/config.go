// Package config provides configuration management for the fleet console.
package config

import (
	"fmt"
	"time"

	"github.com/thoas/go-funk"

	"fleet-console/internal/model"
)

// Config is the root configuration structure for the fleet console.
type Config struct {
	Datasources    DatasourcesConfig    `mapstructure:"datasources" validate:"required"`
	Inventory      InventoryConfig      `mapstructure:"inventory"`
	Inspection     InspectionConfig     `mapstructure:"inspection"`
	Thresholds     ThresholdsConfig     `mapstructure:"thresholds"`
	SeverityFilter SeverityFilterConfig `mapstructure:"severity_filter"`
	Report         ReportConfig         `mapstructure:"report"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Exporter       ExporterConfig       `mapstructure:"exporter"`
}

// DatasourcesConfig contains configurations for data sources.
type DatasourcesConfig struct {
	VictoriaMetrics VictoriaMetricsConfig `mapstructure:"victoriametrics" validate:"required"`
}

// VictoriaMetricsConfig contains configuration for VictoriaMetrics API.
type VictoriaMetricsConfig struct {
	Endpoint string            `mapstructure:"endpoint" validate:"required,url"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Labels   map[string]string `mapstructure:"labels"` // extra label matchers added to every query, e.g. pool
}

// InventoryConfig locates the fleet snapshot and the counter query definitions.
type InventoryConfig struct {
	Path     string `mapstructure:"path" validate:"required"`
	Counters string `mapstructure:"counters" validate:"required"`
}

// InspectionConfig contains configurations for one fleet pass.
type InspectionConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1,lte=100"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ThresholdsConfig contains threshold configurations for alerts, in percent.
type ThresholdsConfig struct {
	CPUUsage    ThresholdPair `mapstructure:"cpu_usage"`
	MemoryUsage ThresholdPair `mapstructure:"memory_usage"`
}

// ThresholdPair defines warning and critical thresholds for a metric.
type ThresholdPair struct {
	Warning  float64 `mapstructure:"warning" validate:"gte=0"`
	Critical float64 `mapstructure:"critical" validate:"gte=0"`
}

// SeverityFilterConfig sets the initial state of the alert severity filter.
type SeverityFilterConfig struct {
	Hidden []string `mapstructure:"hidden" validate:"dive,oneof=unknown 0 1 2 3 4 5"`
}

// HiddenSeverities parses Hidden into distinct severities.
func (c SeverityFilterConfig) HiddenSeverities() ([]model.Severity, error) {
	levels := funk.UniqString(c.Hidden)
	out := make([]model.Severity, 0, len(levels))
	seen := make(map[model.Severity]bool)
	for _, level := range levels {
		s, err := model.ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("severity_filter.hidden: %w", err)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// ReportConfig contains configurations for report generation.
type ReportConfig struct {
	OutputDir        string   `mapstructure:"output_dir"`
	Formats          []string `mapstructure:"formats" validate:"dive,oneof=excel html"`
	FilenameTemplate string   `mapstructure:"filename_template"`
	HTMLTemplate     string   `mapstructure:"html_template"`
	Timezone         string   `mapstructure:"timezone"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// ExporterConfig contains settings for the Prometheus exporter served by "fleet serve".
type ExporterConfig struct {
	Listen   string        `mapstructure:"listen" validate:"required"`
	Path     string        `mapstructure:"path" validate:"required,startswith=/"`
	Interval time.Duration `mapstructure:"interval"` // refresh period of the metric snapshot
}
