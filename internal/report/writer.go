// Package report provides report generation for fleet passes.
// It defines the ReportWriter interface and a registry of the Excel and
// HTML implementations.
package report

import (
	"fleet-console/internal/model"
)

// ReportWriter defines the interface for rendering a fleet report.
type ReportWriter interface {
	// Write renders the report to outputPath. The writer appends its own
	// extension when outputPath lacks it.
	Write(report *model.FleetReport, outputPath string) error

	// Format returns the format identifier for this writer ("excel", "html").
	Format() string
}
