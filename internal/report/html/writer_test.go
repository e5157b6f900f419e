package html

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fleet-console/internal/model"
	"fleet-console/internal/search"
)

// createTestFleetReport builds a finalized report with two VMs, one host and
// three alerts, one of them hidden.
func createTestFleetReport() *model.FleetReport {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	report := model.NewFleetReport(start)
	report.Version = "v1.0.0"

	idle := model.NewEntityRow(model.KindVM, "OpaqueRef:vm-1", "vm-1", "idle-vm")
	idle.SetProperty(search.ColumnCPUUsage, model.Ranked("5% of 2 CPUs", 5).WithRaw(5))

	busy := model.NewEntityRow(model.KindVM, "OpaqueRef:vm-2", "vm-2", "busy-vm")
	busy.SetProperty(search.ColumnCPUUsage, model.Ranked("97% of 4 CPUs", 97).WithRaw(97))
	busy.SetProperty(search.ColumnIPAddresses, model.DisplayOnly("10.0.0.2"))

	host := model.NewEntityRow(model.KindHost, "OpaqueRef:host-1", "host-1", "xs01")

	for _, r := range []*model.EntityRow{idle, busy, host} {
		report.AddRow(r)
	}

	cpu := model.NewAlert(model.KindVM, "vm-2", "busy-vm", model.AlertSourceThreshold, model.Severity5)
	cpu.Name = search.ColumnCPUUsage
	cpu.FormattedValue = "97% of 4 CPUs"
	cpu.WarningThreshold = 80
	cpu.CriticalThreshold = 95
	cpu.Message = "CPU usage critical: 97.0% (threshold: 95.0%)"
	cpu.RaisedAt = start

	msg := model.NewAlert(model.KindHost, "host-1", "xs01", model.AlertSourceMessage, model.Severity2)
	msg.Name = "HOST_CLOCK_SKEW_DETECTED"
	msg.Message = "clock <skew>"
	msg.RaisedAt = start.Add(-2 * time.Hour)

	hidden := model.NewAlert(model.KindVM, "vm-1", "idle-vm", model.AlertSourceMessage, model.Severity1)
	hidden.Name = "VM_STARTED_HIDDEN"
	hidden.Hidden = true

	for _, a := range []*model.Alert{cpu, msg, hidden} {
		report.AddAlert(a)
	}
	report.HiddenSeverities = []model.Severity{model.Severity1}
	report.FilterActive = true
	report.Finalize(start.Add(2 * time.Second))
	return report
}

func writeReport(t *testing.T, w *Writer, report *model.FleetReport) string {
	t.Helper()
	outputPath := filepath.Join(t.TempDir(), "fleet.html")
	if err := w.Write(report, outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return string(content)
}

func TestNewWriter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		w := NewWriter(nil, "", nil)
		if w.timezone != time.UTC {
			t.Errorf("expected UTC, got %s", w.timezone)
		}
		if w.columns == nil {
			t.Error("expected default column registry")
		}
	})

	t.Run("custom timezone and template", func(t *testing.T) {
		loc, _ := time.LoadLocation("America/New_York")
		w := NewWriter(loc, "/path/to/template.html", nil)
		if w.timezone != loc {
			t.Errorf("expected custom timezone")
		}
		if w.templatePath != "/path/to/template.html" {
			t.Errorf("expected template path to be set")
		}
	})
}

func TestWriter_Format(t *testing.T) {
	if got := NewWriter(nil, "", nil).Format(); got != "html" {
		t.Errorf("expected format 'html', got '%s'", got)
	}
}

func TestWriter_Write_NilReport(t *testing.T) {
	err := NewWriter(nil, "", nil).Write(nil, "test.html")
	if err == nil {
		t.Fatal("expected error for nil report")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("expected error message to mention nil, got: %s", err.Error())
	}
}

func TestWriter_Write_Content(t *testing.T) {
	content := writeReport(t, NewWriter(nil, "", nil), createTestFleetReport())

	wants := []string{
		"<title>Fleet Report</title>",
		"2026-01-02 10:00:00",
		"Version: v1.0.0",
		`id="table-host"`,
		`id="table-vm"`,
		"Virtual Machines (2)",
		`<td class="status-critical">97% of 4 CPUs</td>`,
		"10.0.0.2",
		"Severity filter active. Hidden: Priority 1",
		"HOST_CLOCK_SKEW_DETECTED",
		"clock &lt;skew&gt;",
		"2 hours before pass",
		"Alerts (2)",
	}
	for _, want := range wants {
		if !strings.Contains(content, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}

	if strings.Contains(content, "VM_STARTED_HIDDEN") {
		t.Error("hidden alert should not be rendered")
	}
	if strings.Contains(content, `id="table-sr"`) {
		t.Error("kinds without rows should not be rendered")
	}

	// busy-vm sorts ahead of idle-vm by CPU usage
	if strings.Index(content, "busy-vm") > strings.Index(content, "idle-vm") {
		t.Error("expected rows ordered by CPU usage, highest first")
	}
	// the critical alert is listed before the warning
	if strings.Index(content, "Priority 5") > strings.Index(content, "Priority 2") {
		t.Error("expected alerts ordered by severity")
	}
}

func TestWriter_Write_NoFilterNoAlerts(t *testing.T) {
	report := model.NewFleetReport(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))
	report.AddRow(model.NewEntityRow(model.KindPool, "OpaqueRef:p", "p", "lab"))
	report.Finalize(report.InspectionTime)

	content := writeReport(t, NewWriter(nil, "", nil), report)
	if strings.Contains(content, `id="severity-filter"`) {
		t.Error("filter banner should only appear when the filter is active")
	}
	if !strings.Contains(content, "No visible alerts.") {
		t.Error("expected empty alerts message")
	}
	if !strings.Contains(content, `id="table-pool"`) {
		t.Error("expected pool table")
	}
}

func TestWriter_Write_AddsHtmlExtension(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "fleet")
	if err := NewWriter(nil, "", nil).Write(createTestFleetReport(), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(outputPath + ".html"); err != nil {
		t.Errorf("expected .html file: %v", err)
	}
}

func TestWriter_Write_InvalidPath(t *testing.T) {
	err := NewWriter(nil, "", nil).Write(createTestFleetReport(), "/nonexistent/dir/fleet.html")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestWriter_Write_Timezone(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Tokyo")
	content := writeReport(t, NewWriter(loc, "", nil), createTestFleetReport())
	if !strings.Contains(content, "2026-01-02 19:00:00") {
		t.Error("expected inspection time rendered in Asia/Tokyo")
	}
}

func TestWriter_UserTemplate(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "custom.html")
	tpl := `<p>{{.Title}}|{{len .Tables}}|{{len .Alerts}}|{{join .HiddenSeverities ";"}}</p>`
	if err := os.WriteFile(templatePath, []byte(tpl), 0o644); err != nil {
		t.Fatal(err)
	}

	content := writeReport(t, NewWriter(nil, templatePath, nil), createTestFleetReport())
	if content != "<p>Fleet Report|2|2|Priority 1</p>" {
		t.Errorf("unexpected custom template output: %q", content)
	}
}

func TestWriter_UserTemplateMissingFallsBack(t *testing.T) {
	w := NewWriter(nil, filepath.Join(t.TempDir(), "missing.html"), nil)
	content := writeReport(t, w, createTestFleetReport())
	if !strings.Contains(content, "<title>Fleet Report</title>") {
		t.Error("expected embedded template to be used")
	}
}

func TestWriter_UserTemplateInvalid(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "bad.html")
	if err := os.WriteFile(templatePath, []byte("{{.Title"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewWriter(nil, templatePath, nil).Write(createTestFleetReport(), filepath.Join(t.TempDir(), "out.html"))
	if err == nil {
		t.Error("expected parse error for invalid user template")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{2 * time.Second, "2.0s"},
		{3 * time.Minute, "3.0m"},
		{2 * time.Hour, "2.0h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[model.RowStatus]string{
		model.RowStatusNormal:   "status-normal",
		model.RowStatusWarning:  "status-warning",
		model.RowStatusCritical: "status-critical",
		model.RowStatus("x"):    "status-unknown",
	}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%q) = %q, want %q", status, got, want)
		}
	}
}
