package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-console/internal/model"
	"fleet-console/internal/property"
)

// Inventory must satisfy the resolver contract used by property accessors.
var _ property.Resolver = (*Inventory)(nil)

func TestLoad_Fixture(t *testing.T) {
	inv, err := Load(filepath.Join("testdata", "fleet.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "pool-1", inv.Pool().UUID)
	assert.Len(t, inv.Hosts(), 1)
	assert.Len(t, inv.VMs(), 2)
	assert.Len(t, inv.RealVMs(), 1)
	assert.Len(t, inv.SRs(), 1)
	assert.Len(t, inv.VDIs(), 2)

	vm := inv.RealVMs()[0]
	assert.Equal(t, model.RestartPriorityRestart, vm.HARestartPriority)

	m := inv.VMMetrics(vm)
	require.NotNil(t, m)
	assert.Equal(t, int64(2), m.VCPUsNumber)

	gm := inv.VMGuestMetrics(vm)
	require.NotNil(t, gm)
	assert.Equal(t, "10.0.0.50", gm.Networks["0/ip"])

	vbds := inv.VBDs(vm)
	require.Len(t, vbds, 1, "dangling refs are skipped")
	assert.Equal(t, "xvda", vbds[0].Device)
	assert.Len(t, inv.VIFs(vm), 1)

	pifs := inv.PIFs(inv.Hosts()[0])
	assert.Len(t, pifs, 2)

	assert.Same(t, inv.Pool(), inv.PoolOf(inv.SRs()[0]))
}

func TestLoad_TemplateHasNoMetrics(t *testing.T) {
	inv, err := Load(filepath.Join("testdata", "fleet.yaml"))
	require.NoError(t, err)

	for _, vm := range inv.VMs() {
		if vm.IsATemplate {
			assert.Nil(t, inv.VMMetrics(vm))
			assert.Nil(t, inv.VMGuestMetrics(vm))
			assert.Empty(t, inv.VBDs(vm))
		}
	}
}

func TestMessages_SortedByTimestamp(t *testing.T) {
	inv, err := Load(filepath.Join("testdata", "fleet.yaml"))
	require.NoError(t, err)

	msgs := inv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "VM_CRASHED", msgs[0].Name)
	assert.Equal(t, int64(2), msgs[0].Priority)
	assert.Equal(t, model.KindHost, msgs[1].Class)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not found")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool: [unclosed"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"no pool", "hosts: []", "no pool"},
		{"pool without ref", "pool: {uuid: p}", "no ref"},
		{"pool without uuid", "pool: {ref: OpaqueRef:p}", "pool OpaqueRef:p has no uuid"},
		{"duplicate ref", `
pool: {ref: OpaqueRef:x, uuid: p}
hosts: [{ref: OpaqueRef:x, uuid: h}]`, "duplicate ref"},
		{"duplicate device ref", `
pool: {ref: OpaqueRef:p, uuid: p}
vbds: [{ref: OpaqueRef:v}, {ref: OpaqueRef:v}]`, "duplicate ref"},
		{"host without uuid", `
pool: {ref: OpaqueRef:p, uuid: p}
hosts: [{ref: OpaqueRef:h}]`, "host OpaqueRef:h has no uuid"},
		{"vdis without uuid", `
pool: {ref: OpaqueRef:p, uuid: p}
vdis: [{ref: OpaqueRef:d1, name_label: disk}, {ref: OpaqueRef:d2, name_label: disk}]`, "vdi OpaqueRef:d1 has no uuid"},
		{"duplicate uuid", `
pool: {ref: OpaqueRef:p, uuid: p}
vms: [{ref: OpaqueRef:v1, uuid: same}, {ref: OpaqueRef:v2, uuid: same}]`, `duplicate uuid "same"`},
		{"uuid shared across kinds", `
pool: {ref: OpaqueRef:p, uuid: p}
srs: [{ref: OpaqueRef:sr, uuid: p}]`, `duplicate uuid "p" (pool and sr)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := New(nil)
	assert.Error(t, err)
}

func TestParse_EmptyEntries(t *testing.T) {
	lists := map[string]string{
		"hosts":            "host",
		"vms":              "vm",
		"srs":              "sr",
		"vdis":             "vdi",
		"vm_metrics":       "vm_metrics",
		"vm_guest_metrics": "vm_guest_metrics",
		"vbds":             "vbd",
		"vifs":             "vif",
		"pifs":             "pif",
	}
	for list, kind := range lists {
		t.Run(list, func(t *testing.T) {
			doc := "pool:\n  ref: OpaqueRef:p\n  uuid: p\n" + list + ":\n  -\n"
			var err error
			require.NotPanics(t, func() { _, err = Parse([]byte(doc)) })
			assert.ErrorContains(t, err, kind+" entry 0 is empty")
		})
	}
}

func TestParse_MessagesSkipEmptyEntries(t *testing.T) {
	inv, err := Parse([]byte("pool: {ref: OpaqueRef:p, uuid: p}\nmessages:\n  -\n  - {name: VM_STARTED}\n"))
	require.NoError(t, err)
	require.Len(t, inv.Messages(), 1)
	assert.Equal(t, "VM_STARTED", inv.Messages()[0].Name)
}
