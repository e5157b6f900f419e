// Package metrics provides the typed lookup of live per-counter samples.
package metrics

import (
	"fmt"
	"strconv"

	"fleet-console/internal/model"
)

// Counter identifies one raw metric series.
type Counter int

const (
	CounterUnknown            Counter = iota
	CounterCPU                        // per-core utilisation, 0..1; device = core index
	CounterMemory                     // VM memory total, bytes
	CounterMemoryInternalFree         // VM guest free memory, KiB
	CounterMemoryTotalKiB             // host memory total, KiB
	CounterMemoryFreeKiB              // host free memory, KiB
	CounterVBDRead                    // bytes/s; device = VBD device name
	CounterVBDWrite                   // bytes/s; device = VBD device name
	CounterVIFRx                      // bytes/s; device = VIF device
	CounterVIFTx                      // bytes/s; device = VIF device
	CounterPIFRx                      // bytes/s; device = PIF device
	CounterPIFTx                      // bytes/s; device = PIF device
)

var counterNames = map[Counter]string{
	CounterCPU:                "cpu",
	CounterMemory:             "memory",
	CounterMemoryInternalFree: "memory_internal_free",
	CounterMemoryTotalKiB:     "memory_total_kib",
	CounterMemoryFreeKiB:      "memory_free_kib",
	CounterVBDRead:            "vbd_read",
	CounterVBDWrite:           "vbd_write",
	CounterVIFRx:              "vif_rx",
	CounterVIFTx:              "vif_tx",
	CounterPIFRx:              "pif_rx",
	CounterPIFTx:              "pif_tx",
}

var countersByName = func() map[string]Counter {
	m := make(map[string]Counter, len(counterNames))
	for c, name := range counterNames {
		m[name] = c
	}
	return m
}()

// String returns the counter name used in counters.yaml.
func (c Counter) String() string {
	if name, ok := counterNames[c]; ok {
		return name
	}
	return "unknown"
}

// PerDevice returns true if samples of this counter are keyed by a device.
func (c Counter) PerDevice() bool {
	switch c {
	case CounterCPU, CounterVBDRead, CounterVBDWrite, CounterVIFRx, CounterVIFTx, CounterPIFRx, CounterPIFTx:
		return true
	default:
		return false
	}
}

// AppliesTo returns true if the counter is recorded against entities of kind.
func (c Counter) AppliesTo(kind model.EntityKind) bool {
	switch c {
	case CounterCPU:
		return kind == model.KindVM || kind == model.KindHost
	case CounterMemory, CounterMemoryInternalFree, CounterVBDRead, CounterVBDWrite, CounterVIFRx, CounterVIFTx:
		return kind == model.KindVM
	case CounterMemoryTotalKiB, CounterMemoryFreeKiB, CounterPIFRx, CounterPIFTx:
		return kind == model.KindHost
	default:
		return false
	}
}

// ParseCounter resolves a counter name from counters.yaml.
func ParseCounter(name string) (Counter, error) {
	if c, ok := countersByName[name]; ok {
		return c, nil
	}
	return CounterUnknown, fmt.Errorf("unknown counter %q", name)
}

// CoreDevice returns the device name of the i-th CPU core.
func CoreDevice(i int) string {
	return strconv.Itoa(i)
}
