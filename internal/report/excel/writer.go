// Package excel provides Excel report generation for fleet passes.
// It implements the report.ReportWriter interface and writes one .xlsx file
// with a summary sheet, one sheet per entity kind and the visible alerts.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/thoas/go-funk"
	"github.com/xuri/excelize/v2"

	"fleet-console/internal/model"
	"fleet-console/internal/search"
)

const (
	// Sheet names
	sheetSummary = "Summary"
	sheetAlerts  = "Alerts"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Colors for conditional formatting (RGB without #)
	colorWarningBg  = "FFEB9C" // Yellow background for warning
	colorWarningFg  = "9C6500" // Dark yellow text for warning
	colorCriticalBg = "FFC7CE" // Red background for critical
	colorCriticalFg = "9C0006" // Dark red text for critical
	colorHeaderBg   = "4472C4" // Blue background for header
	colorHeaderFg   = "FFFFFF" // White text for header
	colorNormalBg   = "C6EFCE" // Green background for normal
	colorNormalFg   = "006100" // Dark green text for normal

	// Column widths
	defaultColWidth = 15.0
	wideColWidth    = 25.0
	narrowColWidth  = 10.0

	timeLayout = "2006-01-02 15:04:05"
)

// Writer implements report.ReportWriter for Excel format.
type Writer struct {
	timezone *time.Location
	columns  *search.Registry
}

// NewWriter creates a new Excel report writer.
// A nil timezone means UTC, nil columns means the default column registry.
func NewWriter(timezone *time.Location, columns *search.Registry) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	if columns == nil {
		columns = search.NewRegistry()
	}
	return &Writer{
		timezone: timezone,
		columns:  columns,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// styles holds the cell styles shared by every sheet of one workbook.
type styles struct {
	header   int
	warning  int
	critical int
	normal   int
}

func (s *styles) forStatus(status model.RowStatus) int {
	switch status {
	case model.RowStatusCritical:
		return s.critical
	case model.RowStatusWarning:
		return s.warning
	case model.RowStatusNormal:
		return s.normal
	default:
		return 0
	}
}

// Write generates an Excel report from the fleet report.
func (w *Writer) Write(report *model.FleetReport, outputPath string) error {
	if report == nil {
		return fmt.Errorf("fleet report is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := w.createStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	if err := w.createSummarySheet(f, report); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	for _, kind := range model.TableKinds {
		rows := w.columns.TableRows(report.Rows, kind)
		if len(rows) == 0 {
			continue
		}
		if err := w.createEntitySheet(f, st, kind, rows); err != nil {
			return fmt.Errorf("failed to create %s sheet: %w", kind, err)
		}
	}

	if err := w.createAlertsSheet(f, st, report); err != nil {
		return fmt.Errorf("failed to create alerts sheet: %w", err)
	}

	// Ignore error if sheet doesn't exist
	_ = f.DeleteSheet(defaultSheet)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}

// createSummarySheet creates the pass overview worksheet.
func (w *Writer) createSummarySheet(f *excelize.File, report *model.FleetReport) error {
	idx, err := f.NewSheet(sheetSummary)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: colorHeaderFg},
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorHeaderBg}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 18},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	valueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 12},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheetSummary, "A", "A", wideColWidth)
	f.SetColWidth(sheetSummary, "B", "B", 30)

	f.MergeCell(sheetSummary, "A1", "B1")
	f.SetCellValue(sheetSummary, "A1", "Fleet Report")
	f.SetCellStyle(sheetSummary, "A1", "B1", titleStyle)
	f.SetRowHeight(sheetSummary, 1, 30)

	for i, item := range summaryItems(report, w.timezone) {
		row := i + 3
		labelCell := fmt.Sprintf("A%d", row)
		valueCell := fmt.Sprintf("B%d", row)
		f.SetCellValue(sheetSummary, labelCell, item.label)
		f.SetCellValue(sheetSummary, valueCell, item.value)
		f.SetCellStyle(sheetSummary, labelCell, labelCell, labelStyle)
		f.SetCellStyle(sheetSummary, valueCell, valueCell, valueStyle)
		f.SetRowHeight(sheetSummary, row, 22)
	}

	return nil
}

type summaryItem struct {
	label string
	value interface{}
}

func summaryItems(report *model.FleetReport, tz *time.Location) []summaryItem {
	summary := report.Summary
	if summary == nil {
		summary = model.NewFleetSummary(report.Rows)
	}
	alerts := report.AlertSummary
	if alerts == nil {
		alerts = model.NewAlertSummary(report.Alerts)
	}

	items := []summaryItem{
		{"Inspection Time", report.InspectionTime.In(tz).Format(timeLayout)},
		{"Duration", formatDuration(report.Duration)},
	}
	for _, kind := range model.TableKinds {
		items = append(items, summaryItem{kind.Title(), summary.ByKind[kind]})
	}
	items = append(items,
		summaryItem{"Normal Rows", summary.NormalRows},
		summaryItem{"Warning Rows", summary.WarningRows},
		summaryItem{"Critical Rows", summary.CriticalRows},
		summaryItem{"Total Alerts", alerts.TotalAlerts},
		summaryItem{"Visible Alerts", alerts.VisibleAlerts},
		summaryItem{"Hidden Alerts", alerts.HiddenAlerts},
		summaryItem{"Warning Alerts", alerts.WarningCount},
		summaryItem{"Critical Alerts", alerts.CriticalCount},
		summaryItem{"Hidden Severities", hiddenSeveritiesText(report)},
	)
	if report.Version != "" {
		items = append(items, summaryItem{"Version", report.Version})
	}
	return items
}

// createEntitySheet writes one table of rows of the same kind.
func (w *Writer) createEntitySheet(f *excelize.File, st *styles, kind model.EntityKind, rows []*model.EntityRow) error {
	sheet := kind.Title()
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	columns := w.columns.VisibleColumns(kind)
	headers := []string{"Name", "UUID", "Status"}
	for _, c := range columns {
		headers = append(headers, c.Title)
	}
	headers = append(headers, "Alerts")

	f.SetColWidth(sheet, "A", "A", wideColWidth)
	f.SetColWidth(sheet, "B", "B", 38)
	f.SetColWidth(sheet, "C", "C", narrowColWidth)
	for i, c := range columns {
		col := columnName(i + 4)
		width := defaultColWidth
		if c.ID == search.ColumnDiskUsage || c.ID == search.ColumnNetworkUsage || c.ID == search.ColumnIPAddresses {
			width = wideColWidth
		}
		f.SetColWidth(sheet, col, col, width)
	}

	w.writeHeader(f, st, sheet, headers)

	for i, row := range rows {
		rowStr := fmt.Sprintf("%d", i+2)

		f.SetCellValue(sheet, "A"+rowStr, row.Name)
		f.SetCellValue(sheet, "B"+rowStr, row.UUID)
		f.SetCellValue(sheet, "C"+rowStr, statusText(row.Status))
		if style := st.forStatus(row.Status); style > 0 {
			f.SetCellStyle(sheet, "C"+rowStr, "C"+rowStr, style)
		}

		alerted := alertStatusByColumn(row)
		for j, c := range columns {
			cell := columnName(j+4) + rowStr
			p, ok := row.Property(c.ID)
			if !ok {
				f.SetCellValue(sheet, cell, "-")
				continue
			}
			f.SetCellValue(sheet, cell, p.Display)
			if status, ok := alerted[c.ID]; ok && status != model.RowStatusNormal {
				f.SetCellStyle(sheet, cell, cell, st.forStatus(status))
			}
		}

		f.SetCellValue(sheet, columnName(len(columns)+4)+rowStr, len(row.Alerts))
	}

	return nil
}

// createAlertsSheet lists the visible alerts, most severe first.
func (w *Writer) createAlertsSheet(f *excelize.File, st *styles, report *model.FleetReport) error {
	if _, err := f.NewSheet(sheetAlerts); err != nil {
		return err
	}

	headers := []string{"Severity", "Type", "Entity", "Source", "Name", "Value", "Warning", "Critical", "Message", "Raised At"}
	colWidths := []float64{12, 10, 20, 12, 22, 18, 10, 10, 50, 20}
	for i, width := range colWidths {
		col := columnName(i + 1)
		f.SetColWidth(sheetAlerts, col, col, width)
	}

	w.writeHeader(f, st, sheetAlerts, headers)

	for i, alert := range search.SortAlerts(report.VisibleAlerts()) {
		rowStr := fmt.Sprintf("%d", i+2)

		f.SetCellValue(sheetAlerts, "A"+rowStr, alert.Severity.DisplayName())
		f.SetCellValue(sheetAlerts, "B"+rowStr, string(alert.EntityKind))
		f.SetCellValue(sheetAlerts, "C"+rowStr, alert.EntityName)
		f.SetCellValue(sheetAlerts, "D"+rowStr, string(alert.Source))
		f.SetCellValue(sheetAlerts, "E"+rowStr, alert.Name)
		f.SetCellValue(sheetAlerts, "F"+rowStr, valueText(alert))
		f.SetCellValue(sheetAlerts, "G"+rowStr, thresholdText(alert, alert.WarningThreshold))
		f.SetCellValue(sheetAlerts, "H"+rowStr, thresholdText(alert, alert.CriticalThreshold))
		f.SetCellValue(sheetAlerts, "I"+rowStr, alert.Message)
		if !alert.RaisedAt.IsZero() {
			f.SetCellValue(sheetAlerts, "J"+rowStr, alert.RaisedAt.In(w.timezone).Format(timeLayout))
		}

		if style := st.forStatus(alert.Severity.Status()); style > 0 {
			f.SetCellStyle(sheetAlerts, "A"+rowStr, "A"+rowStr, style)
		}
	}

	return nil
}

// writeHeader writes the header row and freezes it.
func (w *Writer) writeHeader(f *excelize.File, st *styles, sheet string, headers []string) {
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", columnName(i+1))
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}
	f.SetRowHeight(sheet, 1, 25)

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// Helper functions

func (w *Writer) createStyles(f *excelize.File) (*styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, err
	}

	warning, err := statusStyle(f, colorWarningFg, colorWarningBg)
	if err != nil {
		return nil, err
	}
	critical, err := statusStyle(f, colorCriticalFg, colorCriticalBg)
	if err != nil {
		return nil, err
	}
	normal, err := statusStyle(f, colorNormalFg, colorNormalBg)
	if err != nil {
		return nil, err
	}

	return &styles{header: header, warning: warning, critical: critical, normal: normal}, nil
}

func statusStyle(f *excelize.File, fg, bg string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: fg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{bg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

// alertStatusByColumn maps each property column of row that carries a
// threshold alert to the worst status raised on it.
func alertStatusByColumn(row *model.EntityRow) map[string]model.RowStatus {
	out := make(map[string]model.RowStatus)
	for _, a := range row.Alerts {
		if a.Source != model.AlertSourceThreshold {
			continue
		}
		status := a.Severity.Status()
		if out[a.Name] != model.RowStatusCritical {
			out[a.Name] = status
		}
	}
	return out
}

// columnName converts a 1-based column index to Excel column name (A, B, ..., Z, AA, AB, ...).
func columnName(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
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

// statusText converts a row status to its display text.
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

func hiddenSeveritiesText(report *model.FleetReport) string {
	if !report.FilterActive || len(report.HiddenSeverities) == 0 {
		return "none"
	}
	names := funk.Map(report.HiddenSeverities, func(s model.Severity) string {
		return s.DisplayName()
	}).([]string)
	return strings.Join(names, ", ")
}

func valueText(alert *model.Alert) string {
	if alert.FormattedValue != "" {
		return alert.FormattedValue
	}
	if alert.Source == model.AlertSourceThreshold {
		return fmt.Sprintf("%.1f%%", alert.CurrentValue)
	}
	return "-"
}

func thresholdText(alert *model.Alert, value float64) string {
	if alert.Source != model.AlertSourceThreshold {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", value)
}
