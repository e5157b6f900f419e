package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fleet-console/internal/config"
	"fleet-console/internal/inventory"
	"fleet-console/internal/model"
	"fleet-console/internal/property"
	"fleet-console/internal/search"
	"fleet-console/internal/severity"
)

const defaultTimezone = "UTC"

// Inspector orchestrates one fleet pass: metric collection, property
// computation, alert evaluation and severity filtering.
type Inspector struct {
	collector   *Collector
	evaluator   *Evaluator
	inventory   *inventory.Inventory
	registry    *search.Registry
	filter      *severity.Filter
	timezone    *time.Location
	timeout     time.Duration
	concurrency int
	version     string
	logger      zerolog.Logger
}

// InspectorOption is a functional option for configuring an Inspector.
type InspectorOption func(*Inspector)

// NewInspector creates a new Inspector with the given dependencies.
func NewInspector(
	cfg *config.Config,
	inv *inventory.Inventory,
	collector *Collector,
	evaluator *Evaluator,
	filter *severity.Filter,
	logger zerolog.Logger,
	opts ...InspectorOption,
) (*Inspector, error) {
	if inv == nil {
		return nil, fmt.Errorf("inventory is required")
	}

	tzName := defaultTimezone
	if cfg != nil && cfg.Report.Timezone != "" {
		tzName = cfg.Report.Timezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tzName, err)
	}

	if filter == nil {
		filter = severity.NewFilter()
	}

	i := &Inspector{
		collector:   collector,
		evaluator:   evaluator,
		inventory:   inv,
		registry:    search.NewRegistry(),
		filter:      filter,
		timezone:    loc,
		concurrency: defaultConcurrency,
		version:     "dev",
		logger:      logger.With().Str("component", "inspector").Logger(),
	}
	if cfg != nil {
		i.timeout = cfg.Inspection.Timeout
		if cfg.Inspection.Concurrency > 0 {
			i.concurrency = cfg.Inspection.Concurrency
		}
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// WithVersion sets the tool version to include in the report.
func WithVersion(version string) InspectorOption {
	return func(i *Inspector) {
		i.version = version
	}
}

// WithRegistry replaces the default column registry.
func WithRegistry(r *search.Registry) InspectorOption {
	return func(i *Inspector) {
		if r != nil {
			i.registry = r
		}
	}
}

// Run executes a complete fleet pass.
func (i *Inspector) Run(ctx context.Context) (*model.FleetReport, error) {
	startTime := time.Now().In(i.timezone)
	i.logger.Info().
		Time("start_time", startTime).
		Str("timezone", i.timezone.String()).
		Msg("starting fleet pass")

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	report := model.NewFleetReport(startTime)
	report.Version = i.version

	// Step 1: Refresh the metric snapshot
	i.logger.Debug().Msg("step 1: collecting metrics")
	if _, err := i.collector.CollectAll(ctx); err != nil {
		i.logger.Error().Err(err).Msg("metric collection failed")
		return nil, fmt.Errorf("metric collection failed: %w", err)
	}

	// Step 2: Compute derived properties for every entity
	i.logger.Debug().Msg("step 2: computing properties")
	rows, err := i.buildRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		report.AddRow(row)
	}

	// Step 3: Evaluate thresholds and merge server messages
	i.logger.Debug().Int("rows", len(rows)).Msg("step 3: evaluating alerts")
	evalResult := i.evaluator.EvaluateAll(report.Rows, i.inventory.Messages(), report.RowByUUID, startTime)

	// Step 4: Apply the severity filter
	i.logger.Debug().Msg("step 4: applying severity filter")
	search.ApplyFilter(evalResult.Alerts, i.filter)
	for _, alert := range evalResult.Alerts {
		report.AddAlert(alert)
	}
	report.HiddenSeverities = i.filter.HiddenLevels()
	report.FilterActive = i.filter.IsFilterActive()

	// Step 5: Finalize
	report.Finalize(time.Now().In(i.timezone))

	i.logger.Info().
		Int("total_rows", report.Summary.TotalRows).
		Int("warning_rows", report.Summary.WarningRows).
		Int("critical_rows", report.Summary.CriticalRows).
		Int("total_alerts", report.AlertSummary.TotalAlerts).
		Int("hidden_alerts", report.AlertSummary.HiddenAlerts).
		Bool("filter_active", report.FilterActive).
		Dur("duration", report.Duration).
		Msg("fleet pass completed")

	return report, nil
}

// Refilter re-applies the current severity filter to a finished report,
// rebuilding row alerts, row status and the alert summary.
func (i *Inspector) Refilter(report *model.FleetReport) {
	Refilter(report, i.filter)
}

// Refilter re-applies filter to report in place.
func Refilter(report *model.FleetReport, filter *severity.Filter) {
	if report == nil || filter == nil {
		return
	}

	search.ApplyFilter(report.Alerts, filter)
	for _, row := range report.Rows {
		row.Alerts = make([]*model.Alert, 0)
		row.Status = model.RowStatusNormal
	}
	for _, alert := range report.Alerts {
		if row := report.RowByUUID(alert.EntityUUID); row != nil {
			row.AddAlert(alert)
		}
	}

	report.HiddenSeverities = filter.HiddenLevels()
	report.FilterActive = filter.IsFilterActive()
	report.Summary = model.NewFleetSummary(report.Rows)
	report.AlertSummary = model.NewAlertSummary(report.Alerts)
}

type pendingRow struct {
	row    *model.EntityRow
	entity any
}

// buildRows creates one row per entity, in pool, host, VM, SR, VDI order,
// and fills the rows concurrently.
func (i *Inspector) buildRows(ctx context.Context) ([]*model.EntityRow, error) {
	inv := i.inventory
	var pending []pendingRow

	if pool := inv.Pool(); pool != nil {
		pending = append(pending, pendingRow{model.NewEntityRow(model.KindPool, pool.Ref, pool.UUID, pool.NameLabel), pool})
	}
	for _, h := range inv.Hosts() {
		pending = append(pending, pendingRow{model.NewEntityRow(model.KindHost, h.Ref, h.UUID, h.NameLabel), h})
	}
	for _, v := range inv.RealVMs() {
		pending = append(pending, pendingRow{model.NewEntityRow(model.KindVM, v.Ref, v.UUID, v.NameLabel), v})
	}
	for _, sr := range inv.SRs() {
		pending = append(pending, pendingRow{model.NewEntityRow(model.KindSR, sr.Ref, sr.UUID, sr.NameLabel), sr})
	}
	for _, vdi := range inv.VDIs() {
		pending = append(pending, pendingRow{model.NewEntityRow(model.KindVDI, vdi.Ref, vdi.UUID, vdi.NameLabel), vdi})
	}

	accessors := property.New(i.collector.Store(), inv)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for _, p := range pending {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			i.registry.Fill(accessors, p.row, p.entity)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing properties failed: %w", err)
	}

	rows := make([]*model.EntityRow, len(pending))
	for idx, p := range pending {
		rows[idx] = p.row
	}
	return rows, nil
}

// Filter returns the severity filter applied to reports.
func (i *Inspector) Filter() *severity.Filter {
	return i.filter
}

// Registry returns the column registry used to fill rows.
func (i *Inspector) Registry() *search.Registry {
	return i.registry
}

// GetTimezone returns the configured timezone.
func (i *Inspector) GetTimezone() *time.Location {
	return i.timezone
}

// GetVersion returns the configured version.
func (i *Inspector) GetVersion() string {
	return i.version
}
