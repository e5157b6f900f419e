// Package exporter exposes the latest fleet report as Prometheus metrics.
package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"fleet-console/internal/model"
)

const namespace = "fleet"

// statusValue encodes a row status as a gauge value.
var statusValue = map[model.RowStatus]float64{
	model.RowStatusNormal:   0,
	model.RowStatusWarning:  1,
	model.RowStatusCritical: 2,
}

// Collector serves the most recent report through const metrics.
type Collector struct {
	mu     sync.RWMutex
	report *model.FleetReport

	propertyRank  *prometheus.Desc
	propertyValue *prometheus.Desc
	entityStatus  *prometheus.Desc
	entities      *prometheus.Desc
	alerts        *prometheus.Desc
	hiddenAlerts  *prometheus.Desc
	filterActive  *prometheus.Desc
	lastPass      *prometheus.Desc
	passDuration  *prometheus.Desc
	passes        prometheus.Counter
	passErrors    prometheus.Counter
}

// NewCollector creates a collector with no report. Until Update is called only
// the pass counters are exported.
func NewCollector() *Collector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(namespace, "", name)
	}
	// ref keeps label sets distinct even when uuid or name repeat
	entityLabels := []string{"kind", "ref", "uuid", "name"}

	return &Collector{
		propertyRank: prometheus.NewDesc(
			fqName("property_rank"),
			"Sort rank of an orderable property column.",
			append(entityLabels, "property"),
			nil,
		),
		propertyValue: prometheus.NewDesc(
			fqName("property_value"),
			"Un-rounded value behind a percentage property column.",
			append(entityLabels, "property"),
			nil,
		),
		entityStatus: prometheus.NewDesc(
			fqName("entity_status"),
			"Row status from visible alerts (0 normal, 1 warning, 2 critical).",
			entityLabels,
			nil,
		),
		entities: prometheus.NewDesc(
			fqName("entities"),
			"Number of rows per entity kind.",
			[]string{"kind"},
			nil,
		),
		alerts: prometheus.NewDesc(
			fqName("alerts"),
			"Visible alerts per severity bucket.",
			[]string{"severity"},
			nil,
		),
		hiddenAlerts: prometheus.NewDesc(
			fqName("alerts_hidden"),
			"Alerts suppressed by the severity filter.",
			nil,
			nil,
		),
		filterActive: prometheus.NewDesc(
			fqName("severity_filter_active"),
			"1 when at least one severity level is hidden.",
			nil,
			nil,
		),
		lastPass: prometheus.NewDesc(
			fqName("last_pass_timestamp_seconds"),
			"Start time of the last completed pass.",
			nil,
			nil,
		),
		passDuration: prometheus.NewDesc(
			fqName("last_pass_duration_seconds"),
			"Duration of the last completed pass.",
			nil,
			nil,
		),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed fleet passes.",
		}),
		passErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_errors_total",
			Help:      "Fleet passes that failed.",
		}),
	}
}

// Update replaces the exported report.
func (c *Collector) Update(report *model.FleetReport) {
	if report == nil {
		return
	}
	c.mu.Lock()
	c.report = report
	c.mu.Unlock()
	c.passes.Inc()
}

// Rewrite replaces the exported report with fn's result. fn receives the
// current report, which scrapes may still be reading, and must return a new
// one instead of changing it. A nil result keeps the current report. Nothing
// happens before the first Update, and the pass counter is unchanged.
func (c *Collector) Rewrite(fn func(*model.FleetReport) *model.FleetReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return
	}
	if next := fn(c.report); next != nil {
		c.report = next
	}
}

// RecordError counts a failed pass. The previous report stays exported.
func (c *Collector) RecordError() {
	c.passErrors.Inc()
}

// Report returns the exported report, or nil before the first Update.
func (c *Collector) Report() *model.FleetReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.propertyRank
	ch <- c.propertyValue
	ch <- c.entityStatus
	ch <- c.entities
	ch <- c.alerts
	ch <- c.hiddenAlerts
	ch <- c.filterActive
	ch <- c.lastPass
	ch <- c.passDuration
	c.passes.Describe(ch)
	c.passErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.passes.Collect(ch)
	c.passErrors.Collect(ch)

	report := c.Report()
	if report == nil {
		return
	}

	byKind := make(map[model.EntityKind]int)
	for _, row := range report.Rows {
		byKind[row.Kind]++
		ch <- prometheus.MustNewConstMetric(c.entityStatus, prometheus.GaugeValue,
			statusValue[row.Status], string(row.Kind), row.Ref, row.UUID, row.Name)

		for id, p := range row.Properties {
			if p.Orderable() {
				ch <- prometheus.MustNewConstMetric(c.propertyRank, prometheus.GaugeValue,
					float64(p.Rank), string(row.Kind), row.Ref, row.UUID, row.Name, id)
			}
			if p.HasRaw {
				ch <- prometheus.MustNewConstMetric(c.propertyValue, prometheus.GaugeValue,
					p.Raw, string(row.Kind), row.Ref, row.UUID, row.Name, id)
			}
		}
	}
	for _, kind := range model.TableKinds {
		ch <- prometheus.MustNewConstMetric(c.entities, prometheus.GaugeValue, float64(byKind[kind]), string(kind))
	}

	summary := report.AlertSummary
	if summary == nil {
		summary = model.NewAlertSummary(report.Alerts)
	}
	for _, sev := range model.AllSeverities {
		ch <- prometheus.MustNewConstMetric(c.alerts, prometheus.GaugeValue,
			float64(summary.BySeverity[sev]), sev.String())
	}
	ch <- prometheus.MustNewConstMetric(c.hiddenAlerts, prometheus.GaugeValue, float64(summary.HiddenAlerts))

	ch <- prometheus.MustNewConstMetric(c.filterActive, prometheus.GaugeValue, boolValue(report.FilterActive))
	ch <- prometheus.MustNewConstMetric(c.lastPass, prometheus.GaugeValue, float64(report.InspectionTime.Unix()))
	ch <- prometheus.MustNewConstMetric(c.passDuration, prometheus.GaugeValue, report.Duration.Seconds())
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
