package exporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fleet-console/internal/config"
	"fleet-console/internal/model"
)

const (
	defaultInterval   = time.Minute
	defaultPath       = "/metrics"
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// PassFunc runs one fleet pass.
type PassFunc func(ctx context.Context) (*model.FleetReport, error)

// Server runs fleet passes on a fixed interval and serves the latest report
// on the metrics endpoint.
type Server struct {
	listen    string
	path      string
	interval  time.Duration
	pass      PassFunc
	collector *Collector
	registry  *prometheus.Registry
	logger    zerolog.Logger
}

// NewServer creates a server. pass is required.
func NewServer(cfg *config.ExporterConfig, pass PassFunc, logger zerolog.Logger) (*Server, error) {
	if pass == nil {
		return nil, fmt.Errorf("pass function is required")
	}

	s := &Server{
		path:      defaultPath,
		interval:  defaultInterval,
		pass:      pass,
		collector: NewCollector(),
		registry:  prometheus.NewRegistry(),
		logger:    logger.With().Str("component", "exporter").Logger(),
	}
	if cfg != nil {
		s.listen = cfg.Listen
		if cfg.Path != "" {
			s.path = cfg.Path
		}
		if cfg.Interval > 0 {
			s.interval = cfg.Interval
		}
	}

	if err := s.registry.Register(s.collector); err != nil {
		return nil, fmt.Errorf("failed to register fleet collector: %w", err)
	}
	s.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return s, nil
}

// Collector returns the fleet collector.
func (s *Server) Collector() *Collector {
	return s.collector
}

// Handler returns the HTTP handler serving the metrics path and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if s.collector.Report() == nil {
			http.Error(w, "no completed pass yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Refresh runs one pass and publishes its report. A failed pass keeps the
// previous report exported.
func (s *Server) Refresh(ctx context.Context) error {
	report, err := s.pass(ctx)
	if err != nil {
		s.collector.RecordError()
		s.logger.Error().Err(err).Msg("fleet pass failed")
		return err
	}
	s.collector.Update(report)
	s.logger.Debug().
		Int("rows", len(report.Rows)).
		Int("visible_alerts", len(report.VisibleAlerts())).
		Msg("metrics refreshed")
	return nil
}

// Run serves metrics until ctx is canceled, refreshing every interval.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().
			Str("listen", s.listen).
			Str("path", s.path).
			Dur("interval", s.interval).
			Msg("serving fleet metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.refreshLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
		s.logger.Info().Msg("metrics server stopped")
		return nil
	})

	return g.Wait()
}

func (s *Server) refreshLoop(ctx context.Context) {
	_ = s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
