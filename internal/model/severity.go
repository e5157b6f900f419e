// Package model provides data models for the fleet console.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity classifies an alert into one of six buckets: unknown, or a numbered
// level from 1 (least severe, informational) to 5 (most severe).
type Severity int

const (
	SeverityUnknown Severity = 0
	Severity1       Severity = 1
	Severity2       Severity = 2
	Severity3       Severity = 3
	Severity4       Severity = 4
	Severity5       Severity = 5
)

// AllSeverities lists every bucket in menu order: numbered levels first, unknown last.
var AllSeverities = []Severity{Severity1, Severity2, Severity3, Severity4, Severity5, SeverityUnknown}

// IsValid returns true if s is one of the six buckets.
func (s Severity) IsValid() bool {
	return s >= SeverityUnknown && s <= Severity5
}

// String returns the config/log representation ("unknown", "1".."5").
func (s Severity) String() string {
	if s == SeverityUnknown {
		return "unknown"
	}
	if !s.IsValid() {
		return fmt.Sprintf("invalid(%d)", int(s))
	}
	return strconv.Itoa(int(s))
}

// DisplayName returns the label shown next to the filter toggle.
func (s Severity) DisplayName() string {
	if s == SeverityUnknown {
		return "Unknown"
	}
	return "Priority " + strconv.Itoa(int(s))
}

// Status maps a severity onto the row status used in reports.
func (s Severity) Status() RowStatus {
	switch s {
	case Severity4, Severity5:
		return RowStatusCritical
	case Severity2, Severity3:
		return RowStatusWarning
	default:
		return RowStatusNormal
	}
}

// ParseSeverity accepts "unknown", "0" or "1".."5" (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "unknown" {
		return SeverityUnknown, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !Severity(n).IsValid() {
		return SeverityUnknown, fmt.Errorf("invalid severity %q: must be unknown or 0-5", s)
	}
	return Severity(n), nil
}

// SeverityFromPriority maps a server message priority onto a bucket.
// Priorities outside 1..5 land in the unknown bucket.
func SeverityFromPriority(priority int64) Severity {
	if priority < 1 || priority > 5 {
		return SeverityUnknown
	}
	return Severity(priority)
}
