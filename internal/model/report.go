// Package model provides data models for the fleet console.
package model

import "time"

// RowStatus is the overall status of an entity row, driven by its visible alerts.
type RowStatus string

const (
	RowStatusNormal   RowStatus = "normal"
	RowStatusWarning  RowStatus = "warning"
	RowStatusCritical RowStatus = "critical"
)

// EntityRow is one line of the fleet table: an entity and its derived properties.
type EntityRow struct {
	Kind       EntityKind                 `json:"kind"`
	Ref        string                     `json:"ref"`
	UUID       string                     `json:"uuid"`
	Name       string                     `json:"name"`
	Properties map[string]DerivedProperty `json:"properties"` // key = column ID
	Alerts     []*Alert                   `json:"alerts,omitempty"`
	Status     RowStatus                  `json:"status"`
}

// NewEntityRow creates an empty row in normal status.
func NewEntityRow(kind EntityKind, ref, uuid, name string) *EntityRow {
	return &EntityRow{
		Kind:       kind,
		Ref:        ref,
		UUID:       uuid,
		Name:       name,
		Properties: make(map[string]DerivedProperty),
		Alerts:     make([]*Alert, 0),
		Status:     RowStatusNormal,
	}
}

// SetProperty stores the property computed for a column.
func (r *EntityRow) SetProperty(column string, p DerivedProperty) {
	if r.Properties == nil {
		r.Properties = make(map[string]DerivedProperty)
	}
	r.Properties[column] = p
}

// Property returns the property for a column and whether it was computed.
func (r *EntityRow) Property(column string) (DerivedProperty, bool) {
	p, ok := r.Properties[column]
	return p, ok
}

// AddAlert attaches a visible alert and raises the row status if needed.
// Hidden alerts never change the row.
func (r *EntityRow) AddAlert(alert *Alert) {
	if alert == nil || alert.Hidden {
		return
	}
	r.Alerts = append(r.Alerts, alert)
	switch alert.Severity.Status() {
	case RowStatusCritical:
		r.Status = RowStatusCritical
	case RowStatusWarning:
		if r.Status != RowStatusCritical {
			r.Status = RowStatusWarning
		}
	}
}

// FleetSummary provides row counts per kind and status.
type FleetSummary struct {
	TotalRows    int                `json:"total_rows"`
	NormalRows   int                `json:"normal_rows"`
	WarningRows  int                `json:"warning_rows"`
	CriticalRows int                `json:"critical_rows"`
	ByKind       map[EntityKind]int `json:"by_kind"`
}

// NewFleetSummary creates a FleetSummary from entity rows.
func NewFleetSummary(rows []*EntityRow) *FleetSummary {
	summary := &FleetSummary{ByKind: make(map[EntityKind]int)}
	for _, row := range rows {
		if row == nil {
			continue
		}
		summary.TotalRows++
		summary.ByKind[row.Kind]++
		switch row.Status {
		case RowStatusNormal:
			summary.NormalRows++
		case RowStatusWarning:
			summary.WarningRows++
		case RowStatusCritical:
			summary.CriticalRows++
		}
	}
	return summary
}

// FleetReport is the complete result of one fleet pass.
type FleetReport struct {
	InspectionTime time.Time     `json:"inspection_time"`
	Duration       time.Duration `json:"duration"`

	Summary *FleetSummary `json:"summary"`
	Rows    []*EntityRow  `json:"rows"`

	Alerts           []*Alert      `json:"alerts"` // every alert, hidden ones included
	AlertSummary     *AlertSummary `json:"alert_summary"`
	HiddenSeverities []Severity    `json:"hidden_severities,omitempty"`
	FilterActive     bool          `json:"filter_active"`

	Version string `json:"version,omitempty"`

	byUUID map[string]*EntityRow
}

// NewFleetReport creates an empty report started at inspectionTime.
func NewFleetReport(inspectionTime time.Time) *FleetReport {
	return &FleetReport{
		InspectionTime: inspectionTime,
		Rows:           make([]*EntityRow, 0),
		Alerts:         make([]*Alert, 0),
		byUUID:         make(map[string]*EntityRow),
	}
}

// AddRow appends an entity row.
func (r *FleetReport) AddRow(row *EntityRow) {
	if row == nil {
		return
	}
	r.Rows = append(r.Rows, row)
	if r.byUUID == nil {
		r.byUUID = make(map[string]*EntityRow)
	}
	if row.UUID != "" {
		r.byUUID[row.UUID] = row
	}
}

// AddAlert records an alert and attaches it to its row when it is visible.
func (r *FleetReport) AddAlert(alert *Alert) {
	if alert == nil {
		return
	}
	r.Alerts = append(r.Alerts, alert)
	if row := r.RowByUUID(alert.EntityUUID); row != nil {
		row.AddAlert(alert)
	}
}

// RowByUUID finds a row by entity UUID.
func (r *FleetReport) RowByUUID(uuid string) *EntityRow {
	if uuid == "" || r.byUUID == nil {
		return nil
	}
	return r.byUUID[uuid]
}

// RowsOfKind returns the rows of one entity kind in insertion order.
func (r *FleetReport) RowsOfKind(kind EntityKind) []*EntityRow {
	var rows []*EntityRow
	for _, row := range r.Rows {
		if row != nil && row.Kind == kind {
			rows = append(rows, row)
		}
	}
	return rows
}

// VisibleAlerts returns alerts not suppressed by the severity filter.
func (r *FleetReport) VisibleAlerts() []*Alert {
	visible := make([]*Alert, 0, len(r.Alerts))
	for _, alert := range r.Alerts {
		if alert != nil && !alert.Hidden {
			visible = append(visible, alert)
		}
	}
	return visible
}

// Finalize calculates summaries after all rows and alerts have been added.
func (r *FleetReport) Finalize(endTime time.Time) {
	r.Duration = endTime.Sub(r.InspectionTime)
	r.Summary = NewFleetSummary(r.Rows)
	r.AlertSummary = NewAlertSummary(r.Alerts)
}

// HasCritical returns true if any visible alert is critical.
func (r *FleetReport) HasCritical() bool {
	return r.AlertSummary != nil && r.AlertSummary.CriticalCount > 0
}

// HasWarning returns true if any visible alert is a warning.
func (r *FleetReport) HasWarning() bool {
	return r.AlertSummary != nil && r.AlertSummary.WarningCount > 0
}

// Clone returns a copy of the report whose rows and alerts can be changed
// without affecting r. Row alerts and statuses are rebuilt from the copied alerts.
func (r *FleetReport) Clone() *FleetReport {
	out := NewFleetReport(r.InspectionTime)
	out.Duration = r.Duration
	out.FilterActive = r.FilterActive
	out.Version = r.Version
	out.HiddenSeverities = append([]Severity(nil), r.HiddenSeverities...)

	for _, row := range r.Rows {
		if row == nil {
			continue
		}
		c := NewEntityRow(row.Kind, row.Ref, row.UUID, row.Name)
		for id, p := range row.Properties {
			c.Properties[id] = p
		}
		out.AddRow(c)
	}
	for _, alert := range r.Alerts {
		if alert == nil {
			continue
		}
		c := *alert
		out.AddAlert(&c)
	}

	if r.Summary != nil {
		out.Summary = NewFleetSummary(out.Rows)
	}
	if r.AlertSummary != nil {
		out.AlertSummary = NewAlertSummary(out.Alerts)
	}
	return out
}
