package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleet-console/internal/config"
	"fleet-console/internal/model"
	"fleet-console/internal/severity"
)

func TestExitCode(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	build := func(sev model.Severity, hidden bool) *model.FleetReport {
		r := model.NewFleetReport(start)
		r.AddRow(model.NewEntityRow(model.KindVM, "OpaqueRef:vm-1", "vm-1", "web01"))
		if sev != 0 {
			a := model.NewAlert(model.KindVM, "vm-1", "web01", model.AlertSourceMessage, sev)
			a.Hidden = hidden
			r.AddAlert(a)
		}
		r.Finalize(start)
		return r
	}

	tests := []struct {
		name   string
		report *model.FleetReport
		want   int
	}{
		{"no alerts", build(0, false), 0},
		{"warning", build(model.Severity3, false), 1},
		{"critical", build(model.Severity5, false), 2},
		{"hidden critical", build(model.Severity5, true), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.report); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveFormats(t *testing.T) {
	defer func() { formats = nil }()

	cfg := &config.Config{}
	if got := resolveFormats(cfg); strings.Join(got, ",") != "excel,html" {
		t.Errorf("expected default formats, got %v", got)
	}

	cfg.Report.Formats = []string{"html"}
	if got := resolveFormats(cfg); strings.Join(got, ",") != "html" {
		t.Errorf("expected config formats, got %v", got)
	}

	formats = []string{"excel"}
	if got := resolveFormats(cfg); strings.Join(got, ",") != "excel" {
		t.Errorf("expected flag formats, got %v", got)
	}
}

func TestResolveOutputDir(t *testing.T) {
	defer func() { outputDir = "" }()

	cfg := &config.Config{}
	if got := resolveOutputDir(cfg); got != "./reports" {
		t.Errorf("expected default dir, got %s", got)
	}
	cfg.Report.OutputDir = "/var/reports"
	if got := resolveOutputDir(cfg); got != "/var/reports" {
		t.Errorf("expected config dir, got %s", got)
	}
	outputDir = "/tmp/out"
	if got := resolveOutputDir(cfg); got != "/tmp/out" {
		t.Errorf("expected flag dir, got %s", got)
	}
}

func TestGenerateFilename(t *testing.T) {
	date := time.Now().UTC().Format("2006-01-02")

	tests := []struct {
		template string
		want     string
	}{
		{"", "fleet_report_" + date},
		{"pool_{{.Date}}", "pool_" + date},
		{"pool_{{ .Date }}_daily", "pool_" + date + "_daily"},
		{"static", "static"},
	}
	for _, tt := range tests {
		if got := generateFilename(tt.template, time.UTC); got != tt.want {
			t.Errorf("generateFilename(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestLoadTimezone(t *testing.T) {
	tz, err := loadTimezone("")
	if err != nil || tz != time.UTC {
		t.Errorf("expected UTC for empty name, got %v, %v", tz, err)
	}

	tz, err = loadTimezone("Asia/Shanghai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tz.String() != "Asia/Shanghai" {
		t.Errorf("expected Asia/Shanghai, got %s", tz)
	}

	if _, err := loadTimezone("Not/AZone"); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	if !strings.Contains(info, Version) {
		t.Errorf("expected version info to contain %q, got %q", Version, info)
	}
}

func TestPipeline_ReloadFilter(t *testing.T) {
	p := &pipeline{filter: severity.NewFilter(), logger: zerolog.Nop()}
	notified := 0
	p.filter.Subscribe(func() { notified++ })

	p.reloadFilter(&config.Config{SeverityFilter: config.SeverityFilterConfig{Hidden: []string{"1", "unknown"}}})
	if !p.filter.ShouldHide(model.Severity1) || !p.filter.ShouldHide(model.SeverityUnknown) {
		t.Errorf("expected levels 1 and unknown hidden, got %v", p.filter.HiddenLevels())
	}
	if notified != 1 {
		t.Errorf("expected 1 notification, got %d", notified)
	}

	p.reloadFilter(&config.Config{SeverityFilter: config.SeverityFilterConfig{Hidden: []string{"bogus"}}})
	if len(p.filter.HiddenLevels()) != 2 {
		t.Errorf("invalid reload should keep the filter, got %v", p.filter.HiddenLevels())
	}

	p.filterPinned = true
	p.reloadFilter(&config.Config{})
	if len(p.filter.HiddenLevels()) != 2 {
		t.Errorf("pinned filter should ignore reloads, got %v", p.filter.HiddenLevels())
	}
}

func TestPipeline_Refilter(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	report := model.NewFleetReport(start)
	report.AddRow(model.NewEntityRow(model.KindVM, "OpaqueRef:vm-1", "vm-1", "web01"))
	report.AddAlert(model.NewAlert(model.KindVM, "vm-1", "web01", model.AlertSourceThreshold, model.Severity5))
	report.Finalize(start)

	p := &pipeline{filter: severity.NewFilterHiding(model.Severity5), logger: zerolog.Nop()}
	next := p.refilter(report)

	if next == report {
		t.Fatal("expected a new report")
	}
	if next.HasCritical() || !next.FilterActive {
		t.Error("expected the critical alert hidden in the new report")
	}
	if next.RowByUUID("vm-1").Status != model.RowStatusNormal {
		t.Errorf("expected normal row, got %s", next.RowByUUID("vm-1").Status)
	}
	if !report.HasCritical() || report.Alerts[0].Hidden {
		t.Error("original report must be unchanged")
	}
}
