// Package property derives display strings, sort ranks and raw values from
// live metric samples for every entity kind shown in the fleet table.
//
// Accessors are pure given a metrics.Store snapshot and may be called from
// many goroutines at once. Missing samples surface as units.Placeholder and,
// for ranked properties, model.RankNotOrderable.
package property

import (
	"fmt"
	"math"

	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
	"fleet-console/internal/units"
)

// Resolver follows references between entity records.
type Resolver interface {
	VMMetrics(vm *model.VM) *model.VMMetrics
	VMGuestMetrics(vm *model.VM) *model.VMGuestMetrics
	VBDs(vm *model.VM) []*model.VBD
	VIFs(vm *model.VM) []*model.VIF
	PIFs(host *model.Host) []*model.PIF
	PoolOf(sr *model.SR) *model.Pool
}

// Accessors computes derived properties against one store and resolver.
type Accessors struct {
	store    metrics.Store
	resolver Resolver
}

// New creates Accessors. Both dependencies are required.
func New(store metrics.Store, resolver Resolver) *Accessors {
	if store == nil {
		panic("property: nil metrics store")
	}
	if resolver == nil {
		panic("property: nil resolver")
	}
	return &Accessors{store: store, resolver: resolver}
}

func (a *Accessors) value(kind model.EntityKind, uuid string, counter metrics.Counter, device string) float64 {
	return a.store.Value(metrics.Key{Kind: kind, Entity: uuid, Counter: counter, Device: device})
}

// coreSum adds the per-core cpu samples of cores 0..total-1. NaN propagates.
func (a *Accessors) coreSum(kind model.EntityKind, uuid string, total int) float64 {
	sum := 0.0
	for i := 0; i < total; i++ {
		sum += a.value(kind, uuid, metrics.CounterCPU, metrics.CoreDevice(i))
	}
	return sum
}

func cpuUsage(sum float64, total int) model.DerivedProperty {
	if total <= 0 {
		return model.Ranked(units.Placeholder, 0)
	}
	if math.IsNaN(sum) {
		return model.NotOrderable(units.Placeholder)
	}

	pct := sum * 100 / float64(total)
	var display string
	if total == 1 {
		display = fmt.Sprintf("%s%% of CPU", units.FormatPercentage(pct))
	} else {
		display = fmt.Sprintf("%s%% of %d CPUs", units.FormatPercentage(pct), total)
	}
	return model.Ranked(display, units.Round(pct)).WithRaw(pct)
}

// memoryUsage renders "used of total" where both are bytes.
func memoryUsage(used, total float64) model.DerivedProperty {
	if total == 0 {
		return model.Ranked(units.Placeholder, 0)
	}
	if math.IsNaN(total) || math.IsNaN(used) {
		return model.NotOrderable(units.Placeholder)
	}

	pct := used * 100 / total
	display := fmt.Sprintf("%s of %s", units.FormatSizeWithoutUnits(used, total), units.FormatSize(total))
	return model.Ranked(display, units.Round(pct)).WithRaw(pct)
}

func memoryUsagePercent(used, total float64) model.DerivedProperty {
	if total == 0 {
		return model.Ranked(units.Placeholder, 0)
	}
	if math.IsNaN(total) || math.IsNaN(used) {
		return model.NotOrderable(units.Placeholder)
	}

	pct := used * 100 / total
	return model.Ranked(units.FormatPercentageDisplay(pct), units.Round(pct)).WithRaw(pct)
}

func memoryUsageValue(used float64) model.DerivedProperty {
	return model.DerivedProperty{}.WithRaw(used)
}

// throughput aggregates per-device byte rates into "avg KB/s (max peak)".
func throughput(devices []string, sample func(device string) float64) model.DerivedProperty {
	if len(devices) == 0 {
		return model.DisplayOnly(units.Placeholder)
	}

	sum, peak := 0.0, 0.0
	for _, device := range devices {
		v := sample(device)
		sum += v
		if v > peak {
			peak = v
		}
	}
	if math.IsNaN(sum) {
		return model.DisplayOnly(units.Placeholder)
	}

	avg := units.ToBinaryKilo(sum / float64(len(devices)))
	display := fmt.Sprintf("%s KB/s (max %s)", units.FormatThroughput(avg), units.FormatThroughput(units.ToBinaryKilo(peak)))
	return model.DisplayOnly(display).WithRaw(avg)
}
