package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fleet-console/internal/report/excel"
	"fleet-console/internal/report/html"
	"fleet-console/internal/search"
)

// Registry manages report writers for different formats.
type Registry struct {
	writers map[string]ReportWriter
}

// NewRegistry creates a registry with the Excel and HTML writers registered.
// A nil timezone means UTC, a nil column registry means the default columns.
// htmlTemplatePath is optional; when empty the embedded template is used.
func NewRegistry(timezone *time.Location, htmlTemplatePath string, columns *search.Registry) *Registry {
	if timezone == nil {
		timezone = time.UTC
	}
	if columns == nil {
		columns = search.NewRegistry()
	}

	r := &Registry{writers: make(map[string]ReportWriter)}
	r.Register(excel.NewWriter(timezone, columns))
	r.Register(html.NewWriter(timezone, htmlTemplatePath, columns))
	return r
}

// Register adds or replaces the writer for its format.
func (r *Registry) Register(w ReportWriter) {
	r.writers[strings.ToLower(w.Format())] = w
}

// Get returns a writer for the specified format. Format names are case-insensitive.
func (r *Registry) Get(format string) (ReportWriter, error) {
	writer, ok := r.writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unsupported report format %q, supported formats: %s",
			format, strings.Join(r.GetAll(), ", "))
	}
	return writer, nil
}

// GetAll returns all supported format names in sorted order.
func (r *Registry) GetAll() []string {
	formats := make([]string, 0, len(r.writers))
	for format := range r.writers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Has checks if the specified format is supported.
func (r *Registry) Has(format string) bool {
	_, ok := r.writers[strings.ToLower(strings.TrimSpace(format))]
	return ok
}

// Extension returns the file extension written for format, including the dot.
func Extension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "excel":
		return ".xlsx"
	case "html":
		return ".html"
	default:
		return "." + strings.ToLower(format)
	}
}
