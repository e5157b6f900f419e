// Package units provides the numeric scaling and string formatting conventions
// shared by every derived property, so that all columns render sizes, rates and
// percentages the same way.
package units

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

const (
	// BinaryKilo is the factor between raw counter units and kibibyte-based units.
	BinaryKilo = 1024.0

	// Placeholder is the display string used whenever a value cannot be measured.
	Placeholder = "-"
)

// ToBinaryKilo scales a raw value down by one binary-kilo step (bytes -> KiB).
func ToBinaryKilo(value float64) float64 {
	return value / BinaryKilo
}

// FromBinaryKilo scales a kibibyte-based value up to raw units (KiB -> bytes).
func FromBinaryKilo(value float64) float64 {
	return value * BinaryKilo
}

// IsMeasurable returns false for NaN and infinite values.
func IsMeasurable(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// Round rounds to the nearest whole number, halves away from zero.
// Callers must not pass NaN; the result is 0 for non-measurable input.
func Round(value float64) int64 {
	if !IsMeasurable(value) {
		return 0
	}
	return int64(math.Round(value))
}

// FormatPercentage renders a percentage rounded to a whole number without decimals.
func FormatPercentage(value float64) string {
	return formatWhole(value)
}

// FormatPercentageDisplay renders a percentage with one decimal digit and a "%" suffix.
func FormatPercentageDisplay(value float64) string {
	if !IsMeasurable(value) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", value)
}

// FormatThroughput renders an already scaled rate as a whole number.
func FormatThroughput(value float64) string {
	return formatWhole(value)
}

func formatWhole(value float64) string {
	if !IsMeasurable(value) {
		return Placeholder
	}
	return strconv.FormatFloat(math.Round(value), 'f', 0, 64)
}

// FormatSize renders a byte count as a binary-scaled size such as "4.0 GiB".
// Zero, negative and non-measurable sizes render as Placeholder.
func FormatSize(bytes float64) string {
	if !IsMeasurable(bytes) || bytes <= 0 {
		return Placeholder
	}
	return humanize.IBytes(uint64(math.Round(bytes)))
}

// FormatSizeWithoutUnits renders bytes in the unit that FormatSize picks for
// reference, without the unit suffix. It is used for the "used" half of
// "used of total" so both numbers share one unit.
func FormatSizeWithoutUnits(bytes, reference float64) string {
	if !IsMeasurable(bytes) {
		return Placeholder
	}
	exp := sizeExponent(reference)
	val := math.Floor(bytes/math.Pow(BinaryKilo, float64(exp))*10+0.5) / 10
	if exp == 0 || math.Abs(val) >= 10 {
		return strconv.FormatFloat(val, 'f', 0, 64)
	}
	return strconv.FormatFloat(val, 'f', 1, 64)
}

// sizeExponent mirrors the unit selection of humanize.IBytes (B..EiB).
func sizeExponent(reference float64) int {
	if !IsMeasurable(reference) || reference < 10 {
		return 0
	}
	exp := int(math.Floor(math.Log(reference) / math.Log(BinaryKilo)))
	if exp > 6 {
		exp = 6
	}
	return exp
}
