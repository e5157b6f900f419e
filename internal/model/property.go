// Package model provides data models for the fleet console.
package model

import "math"

// RankNotOrderable marks a rank derived from missing data. Sorters place it
// after every orderable rank regardless of direction.
const RankNotOrderable int64 = math.MinInt64

// DerivedProperty is the result of one property accessor for one entity.
type DerivedProperty struct {
	Display string  `json:"display"`
	Rank    int64   `json:"rank"`
	HasRank bool    `json:"has_rank"`
	Raw     float64 `json:"raw"`
	HasRaw  bool    `json:"has_raw"`
}

// DisplayOnly creates a property that carries no sort key.
func DisplayOnly(display string) DerivedProperty {
	return DerivedProperty{Display: display}
}

// Ranked creates a property with a display string and a sort key.
func Ranked(display string, rank int64) DerivedProperty {
	return DerivedProperty{Display: display, Rank: rank, HasRank: true}
}

// NotOrderable creates a ranked property whose value could not be measured.
func NotOrderable(display string) DerivedProperty {
	return Ranked(display, RankNotOrderable)
}

// WithRaw attaches the un-rounded value. NaN and infinities are dropped so the
// property always marshals.
func (p DerivedProperty) WithRaw(raw float64) DerivedProperty {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		p.Raw, p.HasRaw = 0, false
		return p
	}
	p.Raw, p.HasRaw = raw, true
	return p
}

// Orderable returns true if the rank can be compared with other ranks.
func (p DerivedProperty) Orderable() bool {
	return p.HasRank && p.Rank != RankNotOrderable
}
