package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fleet-console/internal/config"
	"fleet-console/internal/exporter"
)

var listenAddr string // Listen address, overrides exporter.listen

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fleet properties and alert counts as Prometheus metrics",
	Long: `Run a fleet pass every exporter.interval and expose the latest result on
exporter.path. A failed pass keeps the previous result exported and counts
towards fleet_pass_errors_total. Changes to severity_filter.hidden in the
config file apply without a restart unless --hide is given.

Examples:
  fleet serve -c config.yaml
  fleet serve -c config.yaml --listen :9200`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from exporter.listen)")
	serveCmd.Flags().StringVar(&countersPath, "counters", "", "counter definition file (default from inventory.counters)")
	serveCmd.Flags().StringVar(&inventoryPath, "inventory", "", "inventory snapshot file (default from inventory.path)")
	serveCmd.Flags().StringSliceVar(&hideLevels, "hide", nil, "severity levels to hide (unknown,1..5), comma separated")
}

func runServe(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()
	watcher, cfg, err := config.NewWatcher(configPath)
	if err != nil {
		tmpLogger := setupLogger("error", "console", nil)
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		os.Exit(1)
	}

	tz, err := loadTimezone(cfg.Report.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(resolveLogLevel(cfg), cfg.Logging.Format, tz)

	p, err := newPipeline(cfg, pipelineOptions{
		inventoryPath: inventoryPath,
		countersPath:  countersPath,
		hidden:        hideLevels,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		os.Exit(1)
	}

	exporterCfg := cfg.Exporter
	if listenAddr != "" {
		exporterCfg.Listen = listenAddr
	}

	srv, err := exporter.NewServer(&exporterCfg, p.pass, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create exporter")
		os.Exit(1)
	}

	// a changed severity_filter.hidden takes effect on the exported report
	// at once and on every following pass
	unsubscribe := p.filter.Subscribe(func() {
		srv.Collector().Rewrite(p.refilter)
	})
	defer unsubscribe()
	watcher.Start(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Str("path", configPath).Msg("config reload failed, keeping current settings")
			return
		}
		p.reloadFilter(next)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("exporter stopped with error")
		os.Exit(1)
	}
}
