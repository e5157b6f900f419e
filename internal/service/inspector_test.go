package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-console/internal/inventory"
	"fleet-console/internal/model"
	"fleet-console/internal/search"
	"fleet-console/internal/severity"
)

const testInventory = `
pool:
  ref: OpaqueRef:pool
  uuid: pool-1
  name_label: lab
  ha_enabled: false
hosts:
  - ref: OpaqueRef:host-1
    uuid: host-1
    name_label: xs01
    host_cpus: [OpaqueRef:cpu0, OpaqueRef:cpu1]
vms:
  - ref: OpaqueRef:vm-1
    uuid: vm-1
    name_label: web01
    metrics: OpaqueRef:vmm-1
  - ref: OpaqueRef:vm-2
    uuid: vm-2
    name_label: db01
    metrics: OpaqueRef:vmm-2
  - ref: OpaqueRef:tmpl
    uuid: tmpl-1
    name_label: template
    is_a_template: true
vm_metrics:
  - ref: OpaqueRef:vmm-1
    vcpus_number: 2
  - ref: OpaqueRef:vmm-2
    vcpus_number: 1
messages:
  - ref: OpaqueRef:msg-1
    uuid: msg-1
    name: VM_CRASHED
    priority: 4
    class: vm
    obj_uuid: vm-1
    timestamp: 2026-01-02T09:00:00Z
  - ref: OpaqueRef:msg-2
    uuid: msg-2
    name: HA_HOST_WAS_FENCED
    priority: 1
    class: host
    obj_uuid: host-1
    timestamp: 2026-01-02T10:00:00Z
`

func createTestInspector(t *testing.T, serverURL string, filter *severity.Filter, opts ...InspectorOption) *Inspector {
	t.Helper()
	inv, err := inventory.Parse([]byte(testInventory))
	require.NoError(t, err)

	cfg := createTestConfig()
	collector := newTestCollector(t, serverURL, createTestCounters())
	evaluator := NewEvaluator(&cfg.Thresholds, zerolog.Nop())

	i, err := NewInspector(cfg, inv, collector, evaluator, filter, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return i
}

func TestNewInspector(t *testing.T) {
	inv, err := inventory.Parse([]byte(testInventory))
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		i, err := NewInspector(nil, inv, nil, nil, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "UTC", i.GetTimezone().String())
		assert.Equal(t, "dev", i.GetVersion())
		assert.NotNil(t, i.Filter())
		assert.False(t, i.Filter().IsFilterActive())
		assert.NotNil(t, i.Registry())
	})

	t.Run("options", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Report.Timezone = "Europe/Berlin"
		reg := search.NewRegistry()
		i, err := NewInspector(cfg, inv, nil, nil, nil, zerolog.Nop(), WithVersion("1.2.3"), WithRegistry(reg))
		require.NoError(t, err)
		assert.Equal(t, "Europe/Berlin", i.GetTimezone().String())
		assert.Equal(t, "1.2.3", i.GetVersion())
		assert.Same(t, reg, i.Registry())
	})

	t.Run("invalid_timezone", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Report.Timezone = "Mars/Olympus"
		_, err := NewInspector(cfg, inv, nil, nil, nil, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("missing_inventory", func(t *testing.T) {
		_, err := NewInspector(nil, nil, nil, nil, nil, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestInspector_Run_Success(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	i := createTestInspector(t, server.URL, nil, WithVersion("test"))
	report, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test", report.Version)
	assert.False(t, report.FilterActive)
	assert.Empty(t, report.HiddenSeverities)

	// pool, host and the two real VMs; the template is skipped
	require.Len(t, report.Rows, 4)
	assert.Equal(t, 4, report.Summary.TotalRows)
	assert.Equal(t, 2, report.Summary.ByKind[model.KindVM])

	vm1 := report.RowByUUID("vm-1")
	require.NotNil(t, vm1)
	cpu, ok := vm1.Property(search.ColumnCPUUsage)
	require.True(t, ok)
	assert.Equal(t, "85% of 2 CPUs", cpu.Display)
	assert.Equal(t, int64(85), cpu.Rank)
	mem, ok := vm1.Property(search.ColumnMemoryPercent)
	require.True(t, ok)
	assert.Equal(t, int64(100), mem.Rank)

	host := report.RowByUUID("host-1")
	require.NotNil(t, host)
	hostCPU, _ := host.Property(search.ColumnCPUUsage)
	assert.Equal(t, "20% of 2 CPUs", hostCPU.Display)
	hostMem, _ := host.Property(search.ColumnMemoryPercent)
	assert.Equal(t, "50.0%", hostMem.Display)

	vm2 := report.RowByUUID("vm-2")
	require.NotNil(t, vm2)
	vm2CPU, _ := vm2.Property(search.ColumnCPUUsage)
	assert.Equal(t, "-", vm2CPU.Display)
	assert.False(t, vm2CPU.Orderable())

	// cpu warning + memory critical on vm-1, two server messages
	assert.Equal(t, 4, report.AlertSummary.TotalAlerts)
	assert.Equal(t, 0, report.AlertSummary.HiddenAlerts)
	assert.Equal(t, 1, report.AlertSummary.WarningCount)
	assert.Equal(t, 2, report.AlertSummary.CriticalCount)
	assert.Equal(t, model.RowStatusCritical, vm1.Status)
	assert.Equal(t, model.RowStatusNormal, host.Status)
	assert.Len(t, host.Alerts, 1)
	assert.True(t, report.HasCritical())
}

func TestInspector_Run_SeverityFilter(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	filter := severity.NewFilterHiding(model.Severity4, model.Severity5)
	i := createTestInspector(t, server.URL, filter)
	report, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.FilterActive)
	assert.Equal(t, []model.Severity{model.Severity4, model.Severity5}, report.HiddenSeverities)
	assert.Equal(t, 4, report.AlertSummary.TotalAlerts)
	assert.Equal(t, 2, report.AlertSummary.HiddenAlerts)
	assert.Equal(t, 0, report.AlertSummary.CriticalCount)
	assert.Equal(t, 1, report.AlertSummary.WarningCount)
	assert.False(t, report.HasCritical())
	assert.True(t, report.HasWarning())
	assert.Len(t, report.VisibleAlerts(), 2)

	vm1 := report.RowByUUID("vm-1")
	assert.Equal(t, model.RowStatusWarning, vm1.Status)
	assert.Len(t, vm1.Alerts, 1)
}

func TestInspector_Refilter(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	filter := severity.NewFilter()
	i := createTestInspector(t, server.URL, filter)
	report, err := i.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.HasCritical())

	filter.SetVisible(model.Severity4, false)
	filter.SetVisible(model.Severity5, false)
	i.Refilter(report)

	assert.True(t, report.FilterActive)
	assert.False(t, report.HasCritical())
	assert.Equal(t, 2, report.AlertSummary.HiddenAlerts)
	assert.Equal(t, model.RowStatusWarning, report.RowByUUID("vm-1").Status)
	assert.Equal(t, 1, report.Summary.WarningRows)

	filter.Reset()
	i.Refilter(report)
	assert.True(t, report.HasCritical())
	assert.Equal(t, model.RowStatusCritical, report.RowByUUID("vm-1").Status)

	i.Refilter(nil)
}

func TestInspector_Run_CollectorError(t *testing.T) {
	i := createTestInspector(t, "http://127.0.0.1:1", nil)
	_, err := i.Run(context.Background())
	assert.Error(t, err)
}

func TestInspector_Run_ContextCanceled(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	i := createTestInspector(t, server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := i.Run(ctx)
	assert.Error(t, err)
}

func TestInspector_Timezone(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	i := createTestInspector(t, server.URL, nil)
	report, err := i.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, report.InspectionTime.Location())
	assert.GreaterOrEqual(t, report.Duration, time.Duration(0))
}
