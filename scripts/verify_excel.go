//go:build ignore
// +build ignore

// This script generates sample Excel and HTML fleet reports for manual verification.
// Run with: go run scripts/verify_excel.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fleet-console/internal/model"
	"fleet-console/internal/report"
	"fleet-console/internal/search"
)

func main() {
	result := createSampleData()

	outputDir := "."
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	writers := report.NewRegistry(time.UTC, "", nil)
	for _, format := range writers.GetAll() {
		w, _ := writers.Get(format)
		path := filepath.Join(outputDir, "sample_fleet_report"+report.Extension(format))
		if err := w.Write(result, path); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", format, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s\n", path)
	}
}

func createSampleData() *model.FleetReport {
	now := time.Now().UTC()
	result := model.NewFleetReport(now)
	result.Version = "sample"

	pool := model.NewEntityRow(model.KindPool, "OpaqueRef:pool", "pool-1", "lab")
	pool.SetProperty(search.ColumnHAStatus, model.DisplayOnly("HA enabled"))
	result.AddRow(pool)

	host := model.NewEntityRow(model.KindHost, "OpaqueRef:host-1", "host-1", "xs01")
	host.SetProperty(search.ColumnCPUUsage, model.Ranked("42% of 16 CPUs", 42).WithRaw(42.3))
	host.SetProperty(search.ColumnMemoryUsage, model.Ranked("96.0 GB of 128 GB", 96<<30))
	host.SetProperty(search.ColumnMemoryPercent, model.Ranked("75.0%", 75).WithRaw(75))
	host.SetProperty(search.ColumnNetworkUsage, model.DisplayOnly("12 / 30 KB/s"))
	result.AddRow(host)

	vms := []struct {
		uuid, name string
		cpu        float64
		mem        float64
	}{
		{"vm-1", "web01", 97, 60},
		{"vm-2", "db01", 55, 91},
		{"vm-3", "cache01", 3, 20},
	}
	for _, v := range vms {
		row := model.NewEntityRow(model.KindVM, "OpaqueRef:"+v.uuid, v.uuid, v.name)
		row.SetProperty(search.ColumnCPUUsage, model.Ranked(fmt.Sprintf("%.0f%% of 4 CPUs", v.cpu), int64(v.cpu)).WithRaw(v.cpu))
		row.SetProperty(search.ColumnMemoryPercent, model.Ranked(fmt.Sprintf("%.1f%%", v.mem), int64(v.mem)).WithRaw(v.mem))
		row.SetProperty(search.ColumnIPAddresses, model.DisplayOnly("10.0.0."+v.uuid[3:]))
		row.SetProperty(search.ColumnHAStatus, model.DisplayOnly("restart"))
		result.AddRow(row)
	}
	idle := model.NewEntityRow(model.KindVM, "OpaqueRef:vm-4", "vm-4", "halted01")
	idle.SetProperty(search.ColumnCPUUsage, model.NotOrderable("-"))
	result.AddRow(idle)

	cpu := model.NewAlert(model.KindVM, "vm-1", "web01", model.AlertSourceThreshold, model.Severity5)
	cpu.Name = search.ColumnCPUUsage
	cpu.CurrentValue = 97
	cpu.FormattedValue = "97% of 4 CPUs"
	cpu.WarningThreshold = 80
	cpu.CriticalThreshold = 95
	cpu.Message = "CPU usage critical: 97.0% (threshold: 95.0%)"
	cpu.RaisedAt = now
	result.AddAlert(cpu)

	mem := model.NewAlert(model.KindVM, "vm-2", "db01", model.AlertSourceThreshold, model.Severity3)
	mem.Name = search.ColumnMemoryPercent
	mem.CurrentValue = 91
	mem.FormattedValue = "91.0%"
	mem.WarningThreshold = 85
	mem.CriticalThreshold = 95
	mem.Message = "Memory usage warning: 91.0% (threshold: 85.0%)"
	mem.RaisedAt = now
	result.AddAlert(mem)

	msg := model.NewAlert(model.KindHost, "host-1", "xs01", model.AlertSourceMessage, model.Severity2)
	msg.Name = "HOST_CLOCK_SKEW_DETECTED"
	msg.Message = "The clock on host xs01 is out of sync"
	msg.RaisedAt = now.Add(-3 * time.Hour)
	result.AddAlert(msg)

	result.Finalize(now.Add(2300 * time.Millisecond))
	return result
}
