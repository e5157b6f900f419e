// Package inventory loads a read-only fleet snapshot from YAML and resolves
// references between its records.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"fleet-console/internal/model"
)

// Snapshot is the on-disk layout of an inventory file.
type Snapshot struct {
	Pool           *model.Pool             `yaml:"pool"`
	Hosts          []*model.Host           `yaml:"hosts"`
	VMs            []*model.VM             `yaml:"vms"`
	VMMetrics      []*model.VMMetrics      `yaml:"vm_metrics"`
	VMGuestMetrics []*model.VMGuestMetrics `yaml:"vm_guest_metrics"`
	VBDs           []*model.VBD            `yaml:"vbds"`
	VIFs           []*model.VIF            `yaml:"vifs"`
	PIFs           []*model.PIF            `yaml:"pifs"`
	VDIs           []*model.VDI            `yaml:"vdis"`
	SRs            []*model.SR             `yaml:"srs"`
	Messages       []*model.Message        `yaml:"messages"`
}

// Inventory indexes a Snapshot by reference. It is immutable after New.
type Inventory struct {
	snap *Snapshot

	vmMetrics      map[string]*model.VMMetrics
	vmGuestMetrics map[string]*model.VMGuestMetrics
	vbds           map[string]*model.VBD
	vifs           map[string]*model.VIF
	pifs           map[string]*model.PIF
	vdis           map[string]*model.VDI
}

// Load reads and indexes the inventory file at path.
func Load(path string) (*Inventory, error) {
	if path == "" {
		return nil, fmt.Errorf("inventory file path is required")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("inventory file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	return Parse(data)
}

// Parse indexes an inventory document.
func Parse(data []byte) (*Inventory, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}
	return New(&snap)
}

// New indexes a snapshot. Every record must have a unique, non-empty ref,
// and pools, hosts, VMs, SRs and VDIs also a unique, non-empty uuid. Empty
// list entries are rejected.
func New(snap *Snapshot) (*Inventory, error) {
	if snap == nil {
		return nil, fmt.Errorf("inventory snapshot is nil")
	}
	if snap.Pool == nil {
		return nil, fmt.Errorf("inventory has no pool")
	}

	inv := &Inventory{snap: snap}
	refs := make(map[string]string)
	check := func(kind, ref string) error {
		if ref == "" {
			return fmt.Errorf("%s record has no ref", kind)
		}
		if prev, ok := refs[ref]; ok {
			return fmt.Errorf("duplicate ref %q (%s and %s)", ref, prev, kind)
		}
		refs[ref] = kind
		return nil
	}
	// metric samples and report rows are keyed by uuid
	uuids := make(map[string]string)
	checkEntity := func(kind, ref, uuid string) error {
		if err := check(kind, ref); err != nil {
			return err
		}
		if uuid == "" {
			return fmt.Errorf("%s %s has no uuid", kind, ref)
		}
		if prev, ok := uuids[uuid]; ok {
			return fmt.Errorf("duplicate uuid %q (%s and %s)", uuid, prev, kind)
		}
		uuids[uuid] = kind
		return nil
	}

	if err := checkEntity("pool", snap.Pool.Ref, snap.Pool.UUID); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}

	var err error
	if _, err = index("host", snap.Hosts, func(h *model.Host) error { return checkEntity("host", h.Ref, h.UUID) }, hostRef); err != nil {
		return nil, err
	}
	if _, err = index("vm", snap.VMs, func(v *model.VM) error { return checkEntity("vm", v.Ref, v.UUID) }, vmRef); err != nil {
		return nil, err
	}
	if _, err = index("sr", snap.SRs, func(sr *model.SR) error { return checkEntity("sr", sr.Ref, sr.UUID) }, srRef); err != nil {
		return nil, err
	}
	if inv.vdis, err = index("vdi", snap.VDIs, func(v *model.VDI) error { return checkEntity("vdi", v.Ref, v.UUID) }, vdiRef); err != nil {
		return nil, err
	}
	if inv.vmMetrics, err = index("vm_metrics", snap.VMMetrics, func(m *model.VMMetrics) error { return check("vm_metrics", m.Ref) }, func(m *model.VMMetrics) string { return m.Ref }); err != nil {
		return nil, err
	}
	if inv.vmGuestMetrics, err = index("vm_guest_metrics", snap.VMGuestMetrics, func(m *model.VMGuestMetrics) error { return check("vm_guest_metrics", m.Ref) }, func(m *model.VMGuestMetrics) string { return m.Ref }); err != nil {
		return nil, err
	}
	if inv.vbds, err = index("vbd", snap.VBDs, func(v *model.VBD) error { return check("vbd", v.Ref) }, func(v *model.VBD) string { return v.Ref }); err != nil {
		return nil, err
	}
	if inv.vifs, err = index("vif", snap.VIFs, func(v *model.VIF) error { return check("vif", v.Ref) }, func(v *model.VIF) string { return v.Ref }); err != nil {
		return nil, err
	}
	if inv.pifs, err = index("pif", snap.PIFs, func(p *model.PIF) error { return check("pif", p.Ref) }, func(p *model.PIF) string { return p.Ref }); err != nil {
		return nil, err
	}

	return inv, nil
}

func hostRef(h *model.Host) string { return h.Ref }
func vmRef(v *model.VM) string { return v.Ref }
func srRef(sr *model.SR) string { return sr.Ref }
func vdiRef(v *model.VDI) string { return v.Ref }

// index validates records in order and maps them by ref.
func index[T any](kind string, records []*T, validate func(*T) error, ref func(*T) string) (map[string]*T, error) {
	m := make(map[string]*T, len(records))
	for n, r := range records {
		if r == nil {
			return nil, fmt.Errorf("invalid inventory: %s entry %d is empty", kind, n)
		}
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("invalid inventory: %w", err)
		}
		m[ref(r)] = r
	}
	return m, nil
}

// Pool returns the pool of the connection.
func (i *Inventory) Pool() *model.Pool { return i.snap.Pool }

// Hosts returns every host.
func (i *Inventory) Hosts() []*model.Host { return i.snap.Hosts }

// VMs returns every VM record, templates and control domains included.
func (i *Inventory) VMs() []*model.VM { return i.snap.VMs }

// SRs returns every storage repository.
func (i *Inventory) SRs() []*model.SR { return i.snap.SRs }

// VDIs returns every disk image.
func (i *Inventory) VDIs() []*model.VDI { return i.snap.VDIs }

// Messages returns server messages ordered by timestamp, oldest first.
func (i *Inventory) Messages() []*model.Message {
	msgs := make([]*model.Message, 0, len(i.snap.Messages))
	for _, m := range i.snap.Messages {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(a, b int) bool { return msgs[a].Timestamp.Before(msgs[b].Timestamp) })
	return msgs
}

// RealVMs returns VMs that are neither templates, snapshots nor control domains.
func (i *Inventory) RealVMs() []*model.VM {
	vms := make([]*model.VM, 0, len(i.snap.VMs))
	for _, vm := range i.snap.VMs {
		if vm != nil && vm.IsARealVM() {
			vms = append(vms, vm)
		}
	}
	return vms
}

// VMMetrics implements property.Resolver.
func (i *Inventory) VMMetrics(vm *model.VM) *model.VMMetrics {
	return i.vmMetrics[vm.Metrics]
}

// VMGuestMetrics implements property.Resolver.
func (i *Inventory) VMGuestMetrics(vm *model.VM) *model.VMGuestMetrics {
	return i.vmGuestMetrics[vm.GuestMetrics]
}

// VBDs implements property.Resolver. Dangling refs are skipped.
func (i *Inventory) VBDs(vm *model.VM) []*model.VBD {
	return resolveAll(i.vbds, vm.VBDs)
}

// VIFs implements property.Resolver. Dangling refs are skipped.
func (i *Inventory) VIFs(vm *model.VM) []*model.VIF {
	return resolveAll(i.vifs, vm.VIFs)
}

// PIFs implements property.Resolver. Dangling refs are skipped.
func (i *Inventory) PIFs(host *model.Host) []*model.PIF {
	return resolveAll(i.pifs, host.PIFs)
}

// PoolOf implements property.Resolver. A connection has exactly one pool.
func (i *Inventory) PoolOf(*model.SR) *model.Pool {
	return i.snap.Pool
}

func resolveAll[T any](m map[string]*T, refs []string) []*T {
	out := make([]*T, 0, len(refs))
	for _, ref := range refs {
		if r, ok := m[ref]; ok {
			out = append(out, r)
		}
	}
	return out
}
