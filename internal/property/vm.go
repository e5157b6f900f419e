package property

import (
	"sort"
	"strings"

	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
	"fleet-console/internal/units"
)

func mustVM(vm *model.VM) {
	if vm == nil {
		panic("property: nil VM")
	}
}

// VMCPUUsage sums the per-core samples over the VM's vCPU count.
// A VM without a metrics record has no known cores.
func (a *Accessors) VMCPUUsage(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	total := 0
	if m := a.resolver.VMMetrics(vm); m != nil {
		total = int(m.VCPUsNumber)
	}
	return cpuUsage(a.coreSum(model.KindVM, vm.UUID, total), total)
}

// vmMemory returns used and total bytes. The guest reports free memory in KiB.
func (a *Accessors) vmMemory(vm *model.VM) (used, total float64) {
	free := units.FromBinaryKilo(a.value(model.KindVM, vm.UUID, metrics.CounterMemoryInternalFree, ""))
	total = a.value(model.KindVM, vm.UUID, metrics.CounterMemory, "")
	return total - free, total
}

// VMMemoryUsage renders guest memory as "used of total".
func (a *Accessors) VMMemoryUsage(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	return memoryUsage(a.vmMemory(vm))
}

// VMMemoryUsageValue returns used guest memory in bytes as Raw, unrounded.
func (a *Accessors) VMMemoryUsageValue(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	used, _ := a.vmMemory(vm)
	return memoryUsageValue(used)
}

// VMMemoryUsagePercent renders used guest memory as "N.N%".
func (a *Accessors) VMMemoryUsagePercent(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	return memoryUsagePercent(a.vmMemory(vm))
}

// VMDiskUsage aggregates read+write throughput over the VM's disks.
func (a *Accessors) VMDiskUsage(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	vbds := a.resolver.VBDs(vm)
	devices := make([]string, 0, len(vbds))
	for _, vbd := range vbds {
		if vbd != nil {
			devices = append(devices, vbd.Device)
		}
	}
	return throughput(devices, func(device string) float64 {
		return a.value(model.KindVM, vm.UUID, metrics.CounterVBDRead, device) +
			a.value(model.KindVM, vm.UUID, metrics.CounterVBDWrite, device)
	})
}

// VMNetworkUsage aggregates receive+transmit throughput over the VM's interfaces.
func (a *Accessors) VMNetworkUsage(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	vifs := a.resolver.VIFs(vm)
	devices := make([]string, 0, len(vifs))
	for _, vif := range vifs {
		if vif != nil {
			devices = append(devices, vif.Device)
		}
	}
	return throughput(devices, func(device string) float64 {
		return a.value(model.KindVM, vm.UUID, metrics.CounterVIFRx, device) +
			a.value(model.KindVM, vm.UUID, metrics.CounterVIFTx, device)
	})
}

// VMIPAddresses lists guest-reported addresses ordered by network key.
func (a *Accessors) VMIPAddresses(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	gm := a.resolver.VMGuestMetrics(vm)
	if gm == nil || len(gm.Networks) == 0 {
		return model.DisplayOnly(units.Placeholder)
	}

	keys := make([]string, 0, len(gm.Networks))
	for k := range gm.Networks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	addresses := make([]string, 0, len(keys))
	for _, k := range keys {
		if addr := gm.Networks[k]; addr != "" {
			addresses = append(addresses, addr)
		}
	}
	if len(addresses) == 0 {
		return model.DisplayOnly(units.Placeholder)
	}
	return model.DisplayOnly(strings.Join(addresses, ", "))
}

// VMHAStatus shows the HA restart priority of real VMs.
func (a *Accessors) VMHAStatus(vm *model.VM) model.DerivedProperty {
	mustVM(vm)
	if !vm.IsARealVM() {
		return model.DisplayOnly(units.Placeholder)
	}
	return model.DisplayOnly(vm.HARestartPriority.DisplayName())
}
