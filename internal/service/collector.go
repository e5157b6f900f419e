// Package service provides the collection, evaluation and orchestration
// services behind a fleet pass.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fleet-console/internal/client/vm"
	"fleet-console/internal/config"
	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
)

const defaultConcurrency = 20

// FailedCounter represents a counter whose query failed.
type FailedCounter struct {
	Counter string
	Entity  model.EntityKind
	Error   string
}

// CollectionResult summarises one refresh of the metric snapshot.
type CollectionResult struct {
	Samples         int             // samples written to the snapshot
	ActiveCounters  int             // counters queried
	PendingCounters int             // counters skipped as pending
	FailedCounters  []FailedCounter // counters whose query failed
	CollectedAt     time.Time
}

// Collector refreshes a metrics.Snapshot from VictoriaMetrics.
type Collector struct {
	vmClient    *vm.Client
	store       *metrics.Snapshot
	counters    []*model.CounterDefinition
	concurrency int
	logger      zerolog.Logger
}

// NewCollector creates a new Collector writing into store.
func NewCollector(
	cfg *config.Config,
	vmClient *vm.Client,
	store *metrics.Snapshot,
	counters []*model.CounterDefinition,
	logger zerolog.Logger,
) *Collector {
	concurrency := defaultConcurrency
	if cfg != nil && cfg.Inspection.Concurrency > 0 {
		concurrency = cfg.Inspection.Concurrency
	}

	return &Collector{
		vmClient:    vmClient,
		store:       store,
		counters:    counters,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "collector").Logger(),
	}
}

// Store returns the snapshot the collector writes into.
func (c *Collector) Store() *metrics.Snapshot {
	return c.store
}

// CollectAll queries every active counter and replaces the snapshot contents.
//
// Flow:
//  1. Separate pending and active counters
//  2. Concurrently query active counters (errgroup + concurrency limit)
//  3. Replace the snapshot with the merged samples
//
// A single counter failure does not abort the pass. When every active counter
// fails the snapshot is left untouched and an error is returned.
func (c *Collector) CollectAll(ctx context.Context) (*CollectionResult, error) {
	result := &CollectionResult{CollectedAt: time.Now()}
	c.logger.Info().Msg("starting metric collection")

	// Step 1: Separate pending and active counters
	var active []*model.CounterDefinition
	for _, def := range c.counters {
		if def == nil {
			continue
		}
		if def.IsPending() {
			result.PendingCounters++
			continue
		}
		active = append(active, def)
	}
	result.ActiveCounters = len(active)

	if len(active) == 0 {
		c.logger.Warn().Msg("no active counters to collect")
		c.store.Replace(nil)
		return result, nil
	}

	// Step 2: Concurrently query active counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var mu sync.Mutex // protects values and result.FailedCounters
	values := make(map[metrics.Key]float64)

	for _, def := range active {
		def := def
		g.Go(func() error {
			samples, err := c.collectCounter(gctx, def)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("counter", def.Counter).
					Str("entity", string(def.Entity)).
					Msg("failed to collect counter, continuing with others")
				result.FailedCounters = append(result.FailedCounters, FailedCounter{
					Counter: def.Counter,
					Entity:  def.Entity,
					Error:   err.Error(),
				})
				return nil
			}
			for k, v := range samples {
				values[k] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("concurrent counter collection failed: %w", err)
	}

	if len(result.FailedCounters) == len(active) {
		return nil, fmt.Errorf("all %d counter queries failed: %s", len(active), result.FailedCounters[0].Error)
	}

	// Step 3: Publish
	c.store.Replace(values)
	result.Samples = len(values)

	c.logger.Info().
		Int("samples", result.Samples).
		Int("active_counters", result.ActiveCounters).
		Int("pending_counters", result.PendingCounters).
		Int("failed_counters", len(result.FailedCounters)).
		Msg("metric collection completed")

	return result, nil
}

// collectCounter runs one counter query grouped by the entity label and maps
// every sample onto a store key. Samples without the entity label, or without
// the device label for per-device counters, are dropped.
func (c *Collector) collectCounter(ctx context.Context, def *model.CounterDefinition) (map[metrics.Key]float64, error) {
	counter, err := metrics.ParseCounter(def.Counter)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("counter", def.Counter).
		Str("query", def.Query).
		Msg("collecting counter")

	entityLabel := def.EntityLabelOrDefault()
	byEntity, err := c.vmClient.QueryByLabel(ctx, def.Query, entityLabel)
	if err != nil {
		return nil, fmt.Errorf("query failed for %s: %w", def.Counter, err)
	}

	scale := def.ScaleOrDefault()
	samples := make(map[metrics.Key]float64, len(byEntity))
	dropped, duplicates := 0, 0

	for entity, results := range byEntity {
		for _, r := range results {
			device := ""
			if counter.PerDevice() {
				device = r.Label(def.DeviceLabel)
				if device == "" {
					dropped++
					continue
				}
			}

			key := metrics.Key{Kind: def.Entity, Entity: entity, Counter: counter, Device: device}
			if _, ok := samples[key]; ok {
				duplicates++ // last series wins
			}
			samples[key] = r.Value * scale
		}
	}

	c.logger.Debug().
		Str("counter", def.Counter).
		Int("entities", len(byEntity)).
		Int("samples", len(samples)).
		Int("dropped", dropped).
		Int("duplicates", duplicates).
		Msg("counter collected")

	return samples, nil
}
