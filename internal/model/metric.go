// Package model provides data models for the fleet console.
package model

// CounterDefinition maps one metric counter onto a PromQL query, loaded from counters.yaml.
type CounterDefinition struct {
	Counter     string     `yaml:"counter" json:"counter"`                               // counter name, e.g. vbd_read
	Entity      EntityKind `yaml:"entity" json:"entity"`                                 // vm or host
	Query       string     `yaml:"query" json:"query"`                                   // PromQL instant query
	EntityLabel string     `yaml:"entity_label,omitempty" json:"entity_label,omitempty"` // label carrying the entity UUID
	DeviceLabel string     `yaml:"device_label,omitempty" json:"device_label,omitempty"` // label carrying the device name
	Scale       float64    `yaml:"scale,omitempty" json:"scale,omitempty"`               // multiplier applied to every sample
	Status      string     `yaml:"status,omitempty" json:"status,omitempty"`             // pending = not collected
	Note        string     `yaml:"note,omitempty" json:"note,omitempty"`
}

// DefaultEntityLabel is used when a definition does not name its entity label.
const DefaultEntityLabel = "uuid"

// IsPending returns true if this counter is marked as pending or has no query.
func (d *CounterDefinition) IsPending() bool {
	return d.Status == "pending" || d.Query == ""
}

// HasDeviceLabel returns true if samples are split per device (core, disk, interface).
func (d *CounterDefinition) HasDeviceLabel() bool {
	return d.DeviceLabel != ""
}

// EntityLabelOrDefault returns the configured entity label or DefaultEntityLabel.
func (d *CounterDefinition) EntityLabelOrDefault() string {
	if d.EntityLabel == "" {
		return DefaultEntityLabel
	}
	return d.EntityLabel
}

// ScaleOrDefault returns the configured scale, or 1 when unset.
func (d *CounterDefinition) ScaleOrDefault() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// CountersConfig represents the root structure of counters.yaml.
type CountersConfig struct {
	Counters []*CounterDefinition `yaml:"counters" json:"counters"`
}
