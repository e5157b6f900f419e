// Package model provides data models for the fleet console.
package model

import "time"

// AlertSource tells where an alert came from.
type AlertSource string

const (
	AlertSourceThreshold AlertSource = "threshold" // raised by the local evaluator
	AlertSourceMessage   AlertSource = "message"   // raised by the server
)

// Alert is a severity-tagged event attached to a fleet entity.
type Alert struct {
	EntityKind        EntityKind  `json:"entity_kind"`
	EntityUUID        string      `json:"entity_uuid"`
	EntityName        string      `json:"entity_name"`
	Source            AlertSource `json:"source"`
	Name              string      `json:"name"`                         // property column or message name
	Severity          Severity    `json:"severity"`                     // exactly one bucket per alert
	CurrentValue      float64     `json:"current_value,omitempty"`      // threshold alerts only
	FormattedValue    string      `json:"formatted_value,omitempty"`    // display string of the property
	WarningThreshold  float64     `json:"warning_threshold,omitempty"`  // threshold alerts only
	CriticalThreshold float64     `json:"critical_threshold,omitempty"` // threshold alerts only
	Message           string      `json:"message"`
	RaisedAt          time.Time   `json:"raised_at"`
	Hidden            bool        `json:"hidden"` // suppressed by the severity filter
}

// NewAlert creates a new Alert for an entity.
func NewAlert(kind EntityKind, uuid, name string, source AlertSource, severity Severity) *Alert {
	return &Alert{
		EntityKind: kind,
		EntityUUID: uuid,
		EntityName: name,
		Source:     source,
		Severity:   severity,
	}
}

// IsWarning returns true if the alert maps onto the warning row status.
func (a *Alert) IsWarning() bool {
	return a.Severity.Status() == RowStatusWarning
}

// IsCritical returns true if the alert maps onto the critical row status.
func (a *Alert) IsCritical() bool {
	return a.Severity.Status() == RowStatusCritical
}

// AlertSummary provides aggregated alert statistics.
// Warning and critical counts only include visible alerts.
type AlertSummary struct {
	TotalAlerts   int              `json:"total_alerts"`
	VisibleAlerts int              `json:"visible_alerts"`
	HiddenAlerts  int              `json:"hidden_alerts"`
	WarningCount  int              `json:"warning_count"`
	CriticalCount int              `json:"critical_count"`
	BySeverity    map[Severity]int `json:"by_severity"` // visible alerts per bucket
}

// NewAlertSummary creates a new AlertSummary from a list of alerts.
func NewAlertSummary(alerts []*Alert) *AlertSummary {
	summary := &AlertSummary{BySeverity: make(map[Severity]int)}
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		summary.TotalAlerts++
		if alert.Hidden {
			summary.HiddenAlerts++
			continue
		}
		summary.VisibleAlerts++
		summary.BySeverity[alert.Severity]++
		switch {
		case alert.IsCritical():
			summary.CriticalCount++
		case alert.IsWarning():
			summary.WarningCount++
		}
	}
	return summary
}
