// Package search exposes derived properties as sortable columns and gates
// alert lists through the severity filter.
package search

import (
	"fmt"
	"sort"

	"fleet-console/internal/model"
	"fleet-console/internal/property"
)

// Column IDs. The same ID may exist for several entity kinds.
const (
	ColumnCPUUsage      = "cpu_usage"
	ColumnMemoryUsage   = "memory_usage"
	ColumnMemoryPercent = "memory_usage_percent"
	ColumnMemoryUsed    = "memory_used"
	ColumnDiskUsage     = "disk_usage"
	ColumnNetworkUsage  = "network_usage"
	ColumnIPAddresses   = "ip_addresses"
	ColumnHAStatus      = "ha_status"
	ColumnVirtualSize   = "virtual_size"
)

// Column binds a property accessor to an entity kind.
type Column struct {
	ID     string
	Title  string
	Kind   model.EntityKind
	Ranked bool // sortable by Rank
	Hidden bool // computed but not rendered

	compute func(a *property.Accessors, entity any) model.DerivedProperty
}

// Compute evaluates the column for one entity. The entity must be a pointer
// to the struct matching the column kind.
func (c *Column) Compute(a *property.Accessors, entity any) model.DerivedProperty {
	return c.compute(a, entity)
}

func newColumn[T any](kind model.EntityKind, id, title string, ranked bool, fn func(*property.Accessors, *T) model.DerivedProperty) *Column {
	return &Column{
		ID:     id,
		Title:  title,
		Kind:   kind,
		Ranked: ranked,
		compute: func(a *property.Accessors, entity any) model.DerivedProperty {
			e, ok := entity.(*T)
			if !ok {
				panic(fmt.Sprintf("search: column %s/%s expects %T, got %T", kind, id, e, entity))
			}
			return fn(a, e)
		},
	}
}

func hidden(c *Column) *Column {
	c.Hidden = true
	return c
}

// DefaultColumns returns the built-in columns for every entity kind.
func DefaultColumns() []*Column {
	return []*Column{
		newColumn(model.KindVM, ColumnCPUUsage, "CPU Usage", true, (*property.Accessors).VMCPUUsage),
		newColumn(model.KindVM, ColumnMemoryUsage, "Used Memory", true, (*property.Accessors).VMMemoryUsage),
		newColumn(model.KindVM, ColumnMemoryPercent, "Memory %", true, (*property.Accessors).VMMemoryUsagePercent),
		hidden(newColumn(model.KindVM, ColumnMemoryUsed, "Memory Used (bytes)", false, (*property.Accessors).VMMemoryUsageValue)),
		newColumn(model.KindVM, ColumnDiskUsage, "Disks", false, (*property.Accessors).VMDiskUsage),
		newColumn(model.KindVM, ColumnNetworkUsage, "Network", false, (*property.Accessors).VMNetworkUsage),
		newColumn(model.KindVM, ColumnIPAddresses, "IP Address", false, (*property.Accessors).VMIPAddresses),
		newColumn(model.KindVM, ColumnHAStatus, "HA", false, (*property.Accessors).VMHAStatus),

		newColumn(model.KindHost, ColumnCPUUsage, "CPU Usage", true, (*property.Accessors).HostCPUUsage),
		newColumn(model.KindHost, ColumnMemoryUsage, "Used Memory", true, (*property.Accessors).HostMemoryUsage),
		newColumn(model.KindHost, ColumnMemoryPercent, "Memory %", true, (*property.Accessors).HostMemoryUsagePercent),
		hidden(newColumn(model.KindHost, ColumnMemoryUsed, "Memory Used (bytes)", false, (*property.Accessors).HostMemoryUsageValue)),
		newColumn(model.KindHost, ColumnNetworkUsage, "Network", false, (*property.Accessors).HostNetworkUsage),

		newColumn(model.KindVDI, ColumnVirtualSize, "Size", true, (*property.Accessors).VDIVirtualSize),
		newColumn(model.KindSR, ColumnHAStatus, "HA", false, (*property.Accessors).SRHAStatus),
		newColumn(model.KindPool, ColumnHAStatus, "HA", false, (*property.Accessors).PoolHAStatus),
	}
}

// Registry manages columns per entity kind, in registration order.
type Registry struct {
	columns map[model.EntityKind][]*Column
}

// NewRegistry creates a registry pre-populated with DefaultColumns.
func NewRegistry() *Registry {
	r := &Registry{columns: make(map[model.EntityKind][]*Column)}
	for _, c := range DefaultColumns() {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a column. IDs must be unique per kind.
func (r *Registry) Register(c *Column) error {
	if c == nil || c.compute == nil {
		return fmt.Errorf("column has no accessor")
	}
	if r.Has(c.Kind, c.ID) {
		return fmt.Errorf("column %s/%s already registered", c.Kind, c.ID)
	}
	r.columns[c.Kind] = append(r.columns[c.Kind], c)
	return nil
}

// Get returns the column for kind and id.
func (r *Registry) Get(kind model.EntityKind, id string) (*Column, error) {
	for _, c := range r.columns[kind] {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown column %q for %s", id, kind)
}

// Has checks whether kind has a column with id.
func (r *Registry) Has(kind model.EntityKind, id string) bool {
	_, err := r.Get(kind, id)
	return err == nil
}

// Columns returns the columns of kind in registration order.
func (r *Registry) Columns(kind model.EntityKind) []*Column {
	return r.columns[kind]
}

// VisibleColumns returns the columns of kind that are rendered in reports.
func (r *Registry) VisibleColumns(kind model.EntityKind) []*Column {
	cols := make([]*Column, 0, len(r.columns[kind]))
	for _, c := range r.columns[kind] {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}
	return cols
}

// Kinds returns every kind with at least one column, sorted.
func (r *Registry) Kinds() []model.EntityKind {
	kinds := make([]model.EntityKind, 0, len(r.columns))
	for k := range r.columns {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Fill computes every column of the row's kind and stores the results on the row.
func (r *Registry) Fill(a *property.Accessors, row *model.EntityRow, entity any) {
	for _, c := range r.columns[row.Kind] {
		row.SetProperty(c.ID, c.Compute(a, entity))
	}
}
