// Package html provides HTML report generation for fleet passes.
// It implements the report.ReportWriter interface and renders one
// self-contained .html page from an embedded or user-supplied template.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fleet-console/internal/model"
	"fleet-console/internal/search"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

const timeLayout = "2006-01-02 15:04:05"

// Writer implements report.ReportWriter for HTML format.
type Writer struct {
	timezone     *time.Location
	templatePath string // User-defined template path (optional)
	columns      *search.Registry
}

// TemplateData holds all data passed to the HTML template.
type TemplateData struct {
	Title            string
	InspectionTime   string
	Duration         string
	Summary          *model.FleetSummary
	AlertSummary     *model.AlertSummary
	Tables           []*TableData
	Alerts           []*AlertData
	FilterActive     bool
	HiddenSeverities []string
	Version          string
	GeneratedAt      string
}

// TableData is one entity kind rendered as a table.
type TableData struct {
	Kind    string
	Title   string
	Headers []string
	Rows    []*RowData
}

// RowData represents an entity row formatted for template rendering.
type RowData struct {
	Name        string
	UUID        string
	Status      string
	StatusClass string
	Cells       []*CellData
	AlertCount  int
}

// CellData is one property value. Class is set when a threshold alert
// was raised on the column.
type CellData struct {
	Value string
	Class string
}

// AlertData represents alert data formatted for template rendering.
type AlertData struct {
	Severity          string
	SeverityClass     string
	EntityKind        string
	EntityName        string
	Source            string
	Name              string
	CurrentValue      string
	WarningThreshold  string
	CriticalThreshold string
	Message           string
	RaisedAt          string
	RaisedAgo         string
}

// NewWriter creates a new HTML report writer.
// A nil timezone means UTC, nil columns means the default column registry.
// templatePath is optional; when empty or missing the embedded template is used.
func NewWriter(timezone *time.Location, templatePath string, columns *search.Registry) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	if columns == nil {
		columns = search.NewRegistry()
	}
	return &Writer{
		timezone:     timezone,
		templatePath: templatePath,
		columns:      columns,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "html"
}

// Write generates an HTML report from the fleet report.
func (w *Writer) Write(report *model.FleetReport, outputPath string) error {
	if report == nil {
		return fmt.Errorf("fleet report is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = outputPath + ".html"
	}

	tmpl, err := w.loadTemplate()
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	data := w.prepareTemplateData(report)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// loadTemplate loads the user template if it exists, otherwise the embedded default.
func (w *Writer) loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	if w.templatePath != "" {
		if _, err := os.Stat(w.templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(w.templatePath)).Funcs(funcMap).ParseFiles(w.templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
		// User template not found, fall through to default
	}

	tmpl, err := template.New("default.html").Funcs(funcMap).ParseFS(embeddedTemplates, "templates/default.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// prepareTemplateData converts a FleetReport to TemplateData for template rendering.
func (w *Writer) prepareTemplateData(report *model.FleetReport) *TemplateData {
	summary := report.Summary
	if summary == nil {
		summary = model.NewFleetSummary(report.Rows)
	}
	alertSummary := report.AlertSummary
	if alertSummary == nil {
		alertSummary = model.NewAlertSummary(report.Alerts)
	}

	tables := make([]*TableData, 0, len(model.TableKinds))
	for _, kind := range model.TableKinds {
		rows := w.columns.TableRows(report.Rows, kind)
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, w.convertTable(kind, rows))
	}

	hidden := make([]string, 0, len(report.HiddenSeverities))
	for _, s := range report.HiddenSeverities {
		hidden = append(hidden, s.DisplayName())
	}

	return &TemplateData{
		Title:            "Fleet Report",
		InspectionTime:   report.InspectionTime.In(w.timezone).Format(timeLayout),
		Duration:         formatDuration(report.Duration),
		Summary:          summary,
		AlertSummary:     alertSummary,
		Tables:           tables,
		Alerts:           w.convertAlerts(report.VisibleAlerts(), report.InspectionTime),
		FilterActive:     report.FilterActive,
		HiddenSeverities: hidden,
		Version:          report.Version,
		GeneratedAt:      time.Now().In(w.timezone).Format(timeLayout),
	}
}

// convertTable renders the visible columns of kind for rows already in display order.
func (w *Writer) convertTable(kind model.EntityKind, rows []*model.EntityRow) *TableData {
	columns := w.columns.VisibleColumns(kind)

	table := &TableData{
		Kind:    string(kind),
		Title:   kind.Title(),
		Headers: make([]string, 0, len(columns)),
		Rows:    make([]*RowData, 0, len(rows)),
	}
	for _, c := range columns {
		table.Headers = append(table.Headers, c.Title)
	}

	for _, row := range rows {
		alerted := alertStatusByColumn(row)
		rd := &RowData{
			Name:        row.Name,
			UUID:        row.UUID,
			Status:      statusText(row.Status),
			StatusClass: statusClass(row.Status),
			Cells:       make([]*CellData, 0, len(columns)),
			AlertCount:  len(row.Alerts),
		}
		for _, c := range columns {
			cell := &CellData{Value: "-"}
			if p, ok := row.Property(c.ID); ok {
				cell.Value = p.Display
			}
			if status, ok := alerted[c.ID]; ok && status != model.RowStatusNormal {
				cell.Class = statusClass(status)
			}
			rd.Cells = append(rd.Cells, cell)
		}
		table.Rows = append(table.Rows, rd)
	}

	return table
}

// convertAlerts converts alerts to AlertData, most severe first.
func (w *Writer) convertAlerts(alerts []*model.Alert, reference time.Time) []*AlertData {
	sorted := search.SortAlerts(alerts)
	result := make([]*AlertData, 0, len(sorted))
	for _, alert := range sorted {
		ad := &AlertData{
			Severity:          alert.Severity.DisplayName(),
			SeverityClass:     statusClass(alert.Severity.Status()),
			EntityKind:        string(alert.EntityKind),
			EntityName:        alert.EntityName,
			Source:            string(alert.Source),
			Name:              alert.Name,
			CurrentValue:      "-",
			WarningThreshold:  "-",
			CriticalThreshold: "-",
			Message:           alert.Message,
		}
		if alert.FormattedValue != "" {
			ad.CurrentValue = alert.FormattedValue
		}
		if alert.Source == model.AlertSourceThreshold {
			ad.WarningThreshold = fmt.Sprintf("%.1f%%", alert.WarningThreshold)
			ad.CriticalThreshold = fmt.Sprintf("%.1f%%", alert.CriticalThreshold)
		}
		if !alert.RaisedAt.IsZero() {
			ad.RaisedAt = alert.RaisedAt.In(w.timezone).Format(timeLayout)
			ad.RaisedAgo = humanize.RelTime(alert.RaisedAt, reference, "before pass", "after pass")
		}
		result = append(result, ad)
	}
	return result
}

// alertStatusByColumn maps each column of row carrying a threshold alert to
// the worst status raised on it.
func alertStatusByColumn(row *model.EntityRow) map[string]model.RowStatus {
	out := make(map[string]model.RowStatus)
	for _, a := range row.Alerts {
		if a.Source != model.AlertSourceThreshold {
			continue
		}
		if out[a.Name] != model.RowStatusCritical {
			out[a.Name] = a.Severity.Status()
		}
	}
	return out
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func statusText(status model.RowStatus) string {
	switch status {
	case model.RowStatusNormal:
		return "Normal"
	case model.RowStatusWarning:
		return "Warning"
	case model.RowStatusCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

func statusClass(status model.RowStatus) string {
	switch status {
	case model.RowStatusNormal:
		return "status-normal"
	case model.RowStatusWarning:
		return "status-warning"
	case model.RowStatusCritical:
		return "status-critical"
	default:
		return "status-unknown"
	}
}
