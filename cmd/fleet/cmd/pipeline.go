package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fleet-console/internal/client/vm"
	"fleet-console/internal/config"
	"fleet-console/internal/inventory"
	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
	"fleet-console/internal/search"
	"fleet-console/internal/service"
	"fleet-console/internal/severity"
)

// pipelineOptions are command line overrides of the config file.
type pipelineOptions struct {
	inventoryPath string
	countersPath  string
	hidden        []string
}

// pipeline holds the dependencies shared by every pass. The inventory
// snapshot is reloaded on each pass so a long-running exporter sees changes.
type pipeline struct {
	cfg           *config.Config
	inventoryPath string
	collector     *service.Collector
	evaluator     *service.Evaluator
	filter        *severity.Filter
	filterPinned  bool // --hide given, config reloads leave the filter alone
	columns       *search.Registry
	timezone      *time.Location
	logger        zerolog.Logger
}

func newPipeline(cfg *config.Config, opts pipelineOptions, logger zerolog.Logger) (*pipeline, error) {
	tz, err := loadTimezone(cfg.Report.Timezone)
	if err != nil {
		return nil, err
	}

	countersPath := cfg.Inventory.Counters
	if opts.countersPath != "" {
		countersPath = opts.countersPath
	}
	counters, err := config.LoadCounters(countersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}
	logger.Debug().
		Str("path", countersPath).
		Int("active_counters", config.CountActiveCounters(counters)).
		Int("total_counters", len(counters)).
		Msg("counter definitions loaded")

	filterCfg := cfg.SeverityFilter
	if len(opts.hidden) > 0 {
		filterCfg = config.SeverityFilterConfig{Hidden: opts.hidden}
	}
	hidden, err := filterCfg.HiddenSeverities()
	if err != nil {
		return nil, fmt.Errorf("invalid severity filter: %w", err)
	}

	inventoryPath := cfg.Inventory.Path
	if opts.inventoryPath != "" {
		inventoryPath = opts.inventoryPath
	}

	vmClient := vm.NewClient(&cfg.Datasources.VictoriaMetrics, &cfg.HTTP.Retry, logger)

	return &pipeline{
		cfg:           cfg,
		inventoryPath: inventoryPath,
		collector:     service.NewCollector(cfg, vmClient, metrics.NewSnapshot(), counters, logger),
		evaluator:     service.NewEvaluator(&cfg.Thresholds, logger),
		filter:        severity.NewFilterHiding(hidden...),
		filterPinned:  len(opts.hidden) > 0,
		columns:       search.NewRegistry(),
		timezone:      tz,
		logger:        logger,
	}, nil
}

// pass loads the inventory snapshot and runs one fleet pass.
func (p *pipeline) pass(ctx context.Context) (*model.FleetReport, error) {
	inv, err := inventory.Load(p.inventoryPath)
	if err != nil {
		return nil, err
	}

	inspector, err := service.NewInspector(p.cfg, inv, p.collector, p.evaluator, p.filter, p.logger,
		service.WithVersion(Version),
		service.WithRegistry(p.columns),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inspector: %w", err)
	}

	return inspector.Run(ctx)
}

// refilter returns a copy of report with the current severity filter applied.
func (p *pipeline) refilter(report *model.FleetReport) *model.FleetReport {
	next := report.Clone()
	service.Refilter(next, p.filter)
	return next
}

// reloadFilter applies the severity filter of a reloaded config file.
func (p *pipeline) reloadFilter(cfg *config.Config) {
	if p.filterPinned {
		p.logger.Debug().Msg("severity filter set on the command line, ignoring config reload")
		return
	}
	hidden, err := cfg.SeverityFilter.HiddenSeverities()
	if err != nil {
		p.logger.Warn().Err(err).Msg("invalid severity filter in reloaded config, keeping current filter")
		return
	}
	p.filter.SetHidden(hidden...)
	p.logger.Info().Strs("hidden", cfg.SeverityFilter.Hidden).Msg("severity filter reloaded")
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", name, err)
	}
	return tz, nil
}

// resolveLogLevel prefers the command line flag over the config file.
func resolveLogLevel(cfg *config.Config) string {
	if GetLogLevel() != "" {
		return GetLogLevel()
	}
	return cfg.Logging.Level
}
