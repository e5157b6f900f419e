package property

import (
	"fmt"

	"github.com/thoas/go-funk"

	"fleet-console/internal/model"
	"fleet-console/internal/units"
)

const (
	haDisabled       = "Disabled"
	haHeartbeatSR    = "Heartbeat SR"
	haToleratesOne   = "Tolerates 1 host failure"
	haToleratesCount = "Tolerates %d host failures"
)

// VDIVirtualSize renders the disk's virtual size. Rank is the size in bytes.
func (a *Accessors) VDIVirtualSize(vdi *model.VDI) model.DerivedProperty {
	if vdi == nil {
		panic("property: nil VDI")
	}
	if vdi.VirtualSize == 0 {
		return model.Ranked(units.Placeholder, 0)
	}
	size := float64(vdi.VirtualSize)
	return model.Ranked(units.FormatSize(size), vdi.VirtualSize).WithRaw(size)
}

// PoolHAStatus describes whether HA is on and how many host failures it covers.
func (a *Accessors) PoolHAStatus(pool *model.Pool) model.DerivedProperty {
	if pool == nil {
		panic("property: nil pool")
	}
	if !pool.HAEnabled {
		return model.DisplayOnly(haDisabled)
	}
	if pool.HAPlanExistsFor == 1 {
		return model.DisplayOnly(haToleratesOne)
	}
	return model.DisplayOnly(fmt.Sprintf(haToleratesCount, pool.HAPlanExistsFor))
}

// SRHAStatus marks the SR holding the pool's HA heartbeat volume. Other SRs
// get an empty string.
func (a *Accessors) SRHAStatus(sr *model.SR) model.DerivedProperty {
	if sr == nil {
		panic("property: nil SR")
	}
	pool := a.resolver.PoolOf(sr)
	if pool == nil || len(pool.HAStatefiles) == 0 {
		return model.DisplayOnly("")
	}
	if funk.ContainsString(sr.VDIs, pool.HAStatefiles[0]) {
		return model.DisplayOnly(haHeartbeatSR)
	}
	return model.DisplayOnly("")
}
