package report

import (
	"strings"
	"testing"
	"time"

	"fleet-console/internal/model"
)

type stubWriter struct{ format string }

func (s stubWriter) Write(*model.FleetReport, string) error { return nil }
func (s stubWriter) Format() string                         { return s.format }

func TestNewRegistry(t *testing.T) {
	t.Run("with nil timezone and columns", func(t *testing.T) {
		r := NewRegistry(nil, "", nil)

		if len(r.writers) != 2 {
			t.Errorf("expected 2 writers, got %d", len(r.writers))
		}
		if _, ok := r.writers["excel"]; !ok {
			t.Error("expected excel writer to be registered")
		}
		if _, ok := r.writers["html"]; !ok {
			t.Error("expected html writer to be registered")
		}
	})

	t.Run("with custom timezone and template", func(t *testing.T) {
		tz, _ := time.LoadLocation("America/New_York")
		r := NewRegistry(tz, "/custom/template.html", nil)

		w, err := r.Get("html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Format() != "html" {
			t.Errorf("expected html format, got %s", w.Format())
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(nil, "", nil)

	tests := []struct {
		input string
		want  string
	}{
		{"excel", "excel"},
		{"html", "html"},
		{"EXCEL", "excel"},
		{"Html", "html"},
		{"  excel  ", "excel"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			w, err := r.Get(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.Format() != tt.want {
				t.Errorf("expected format %q, got %q", tt.want, w.Format())
			}
		})
	}
}

func TestRegistry_Get_Unsupported(t *testing.T) {
	r := NewRegistry(nil, "", nil)

	for _, format := range []string{"pdf", "", "csv"} {
		w, err := r.Get(format)
		if err == nil {
			t.Fatalf("expected error for format %q", format)
		}
		if w != nil {
			t.Errorf("expected nil writer for format %q", format)
		}
		if !strings.Contains(err.Error(), "excel, html") {
			t.Errorf("error should list supported formats, got: %v", err)
		}
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry(nil, "", nil)
	r.Register(stubWriter{format: "JSON"})

	formats := r.GetAll()
	want := []string{"excel", "html", "json"}
	if strings.Join(formats, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, formats)
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry(nil, "", nil)

	tests := []struct {
		format string
		want   bool
	}{
		{"excel", true},
		{"HTML", true},
		{" html ", true},
		{"pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := r.Has(tt.format); got != tt.want {
			t.Errorf("Has(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"excel": ".xlsx",
		"HTML":  ".html",
		"json":  ".json",
	}
	for format, want := range tests {
		if got := Extension(format); got != want {
			t.Errorf("Extension(%q) = %q, want %q", format, got, want)
		}
	}
}
