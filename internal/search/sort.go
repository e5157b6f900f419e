package search

import (
	"sort"
	"strings"

	"fleet-console/internal/model"
	"fleet-console/internal/severity"
)

// SortRows orders rows in place by one column. Ranked columns compare Rank,
// others compare Display case-insensitively. Rows whose value is not
// orderable stay after every orderable row in both directions. The sort is
// stable and ties fall back to the row name.
func SortRows(rows []*model.EntityRow, column *Column, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		pi, oki := orderable(rows[i], column)
		pj, okj := orderable(rows[j], column)
		if oki != okj {
			return oki
		}
		if !oki {
			return rows[i].Name < rows[j].Name
		}

		c := compare(pi, pj, column.Ranked)
		if c == 0 {
			return rows[i].Name < rows[j].Name
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func orderable(row *model.EntityRow, column *Column) (model.DerivedProperty, bool) {
	if row == nil {
		return model.DerivedProperty{}, false
	}
	p, ok := row.Property(column.ID)
	if !ok {
		return p, false
	}
	if column.Ranked {
		return p, p.Orderable()
	}
	return p, true
}

func compare(a, b model.DerivedProperty, ranked bool) int {
	if ranked {
		switch {
		case a.Rank < b.Rank:
			return -1
		case a.Rank > b.Rank:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a.Display), strings.ToLower(b.Display))
}

// ApplyFilter marks every alert hidden or visible according to f and returns
// the visible ones in their original order.
func ApplyFilter(alerts []*model.Alert, f *severity.Filter) []*model.Alert {
	visible := make([]*model.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		alert.Hidden = f.ShouldHide(alert.Severity)
		if !alert.Hidden {
			visible = append(visible, alert)
		}
	}
	return visible
}

// DefaultSortColumn returns the first visible ranked column of kind, or nil
// when the kind has none.
func (r *Registry) DefaultSortColumn(kind model.EntityKind) *Column {
	for _, c := range r.VisibleColumns(kind) {
		if c.Ranked {
			return c
		}
	}
	return nil
}

// TableRows returns a copy of the rows of kind in display order: by the
// default sort column, highest first, or by name when there is none.
func (r *Registry) TableRows(rows []*model.EntityRow, kind model.EntityKind) []*model.EntityRow {
	out := make([]*model.EntityRow, 0, len(rows))
	for _, row := range rows {
		if row != nil && row.Kind == kind {
			out = append(out, row)
		}
	}
	if c := r.DefaultSortColumn(kind); c != nil {
		SortRows(out, c, true)
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SortAlerts returns a copy of alerts ordered by severity, most severe first,
// then by entity name and alert name. Unknown sorts last.
func SortAlerts(alerts []*model.Alert) []*model.Alert {
	out := make([]*model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a != nil {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		if out[i].EntityName != out[j].EntityName {
			return out[i].EntityName < out[j].EntityName
		}
		return out[i].Name < out[j].Name
	})
	return out
}
