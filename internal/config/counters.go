// Package config provides configuration management for the fleet console.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
)

// LoadCounters reads counter query definitions from the specified YAML file.
// Pending definitions are returned but not checked beyond their name.
func LoadCounters(countersPath string) ([]*model.CounterDefinition, error) {
	if countersPath == "" {
		return nil, fmt.Errorf("counters file path is required")
	}

	if _, err := os.Stat(countersPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("counters file not found: %s", countersPath)
	}

	data, err := os.ReadFile(countersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read counters file: %w", err)
	}

	var cfg model.CountersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse counters file: %w", err)
	}

	if len(cfg.Counters) == 0 {
		return nil, fmt.Errorf("no counters defined in file: %s", countersPath)
	}

	for i, d := range cfg.Counters {
		if d == nil || d.Counter == "" {
			return nil, fmt.Errorf("counter at index %d has no name", i)
		}
		c, err := metrics.ParseCounter(d.Counter)
		if err != nil {
			return nil, fmt.Errorf("counter at index %d: %w", i, err)
		}
		if d.IsPending() {
			continue
		}
		if !c.AppliesTo(d.Entity) {
			return nil, fmt.Errorf("counter %q does not apply to entity %q", d.Counter, d.Entity)
		}
		if c.PerDevice() && !d.HasDeviceLabel() {
			return nil, fmt.Errorf("counter %q is per device and needs device_label", d.Counter)
		}
		if !c.PerDevice() && d.HasDeviceLabel() {
			return nil, fmt.Errorf("counter %q is not per device but has device_label %q", d.Counter, d.DeviceLabel)
		}
	}

	return cfg.Counters, nil
}

// CountActiveCounters returns the count of active (non-pending) counter definitions.
func CountActiveCounters(defs []*model.CounterDefinition) int {
	count := 0
	for _, d := range defs {
		if !d.IsPending() {
			count++
		}
	}
	return count
}
