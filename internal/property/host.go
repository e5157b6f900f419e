package property

import (
	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
	"fleet-console/internal/units"
)

func mustHost(host *model.Host) {
	if host == nil {
		panic("property: nil host")
	}
}

// HostCPUUsage sums the per-core samples over the host's physical CPUs.
func (a *Accessors) HostCPUUsage(host *model.Host) model.DerivedProperty {
	mustHost(host)
	total := len(host.HostCPUs)
	return cpuUsage(a.coreSum(model.KindHost, host.UUID, total), total)
}

// hostMemory returns used and total bytes. The host reports both in KiB.
func (a *Accessors) hostMemory(host *model.Host) (used, total float64) {
	free := a.value(model.KindHost, host.UUID, metrics.CounterMemoryFreeKiB, "")
	total = a.value(model.KindHost, host.UUID, metrics.CounterMemoryTotalKiB, "")
	return units.FromBinaryKilo(total - free), units.FromBinaryKilo(total)
}

// HostMemoryUsage renders host memory as "used of total".
func (a *Accessors) HostMemoryUsage(host *model.Host) model.DerivedProperty {
	mustHost(host)
	return memoryUsage(a.hostMemory(host))
}

// HostMemoryUsageValue returns used host memory in bytes as Raw, unrounded.
func (a *Accessors) HostMemoryUsageValue(host *model.Host) model.DerivedProperty {
	mustHost(host)
	used, _ := a.hostMemory(host)
	return memoryUsageValue(used)
}

// HostMemoryUsagePercent renders used host memory as "N.N%".
func (a *Accessors) HostMemoryUsagePercent(host *model.Host) model.DerivedProperty {
	mustHost(host)
	return memoryUsagePercent(a.hostMemory(host))
}

// HostNetworkUsage aggregates receive+transmit throughput over physical
// interfaces only. Bonds and VLANs would count their members twice.
func (a *Accessors) HostNetworkUsage(host *model.Host) model.DerivedProperty {
	mustHost(host)
	pifs := a.resolver.PIFs(host)
	devices := make([]string, 0, len(pifs))
	for _, pif := range pifs {
		if pif != nil && pif.Physical {
			devices = append(devices, pif.Device)
		}
	}
	return throughput(devices, func(device string) float64 {
		return a.value(model.KindHost, host.UUID, metrics.CounterPIFRx, device) +
			a.value(model.KindHost, host.UUID, metrics.CounterPIFTx, device)
	})
}
