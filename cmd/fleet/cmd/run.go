package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleet-console/internal/config"
	"fleet-console/internal/model"
	"fleet-console/internal/report"
)

// Command flags
var (
	outputDir     string   // Output directory for reports
	formats       []string // Output formats (excel, html)
	countersPath  string   // Counter definition file, overrides inventory.counters
	inventoryPath string   // Inventory snapshot, overrides inventory.path
	hideLevels    []string // Hidden severity levels, overrides severity_filter.hidden
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one fleet pass and write reports",
	Long: `Run one complete fleet pass:
1. Load the pool inventory snapshot
2. Query every active counter from VictoriaMetrics
3. Compute the property columns of every VM, host, SR, VDI and the pool
4. Raise threshold alerts and merge server messages
5. Apply the severity filter
6. Write Excel and HTML reports

Exit code is 2 when a critical alert remains visible, 1 for a visible warning.

Examples:
  # Run with the default config
  fleet run -c config.yaml

  # Choose formats and output directory
  fleet run -c config.yaml -f excel,html -o ./reports

  # Hide informational levels for this run
  fleet run -c config.yaml --hide 1,2,unknown`,
	Run: runPass,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "output formats (excel,html), comma separated")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	runCmd.Flags().StringVar(&countersPath, "counters", "", "counter definition file (default from inventory.counters)")
	runCmd.Flags().StringVar(&inventoryPath, "inventory", "", "inventory snapshot file (default from inventory.path)")
	runCmd.Flags().StringSliceVar(&hideLevels, "hide", nil, "severity levels to hide (unknown,1..5), comma separated")
}

// runPass executes one fleet pass and writes the reports.
func runPass(cmd *cobra.Command, args []string) {
	printBanner()

	configPath := GetConfigFile()
	fmt.Printf("📋 Loading config: %s\n", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		tmpLogger := setupLogger("error", "console", nil)
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	tz, err := loadTimezone(cfg.Report.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	level := resolveLogLevel(cfg)
	logger := setupLogger(level, cfg.Logging.Format, tz)
	logger.Debug().
		Str("config_path", configPath).
		Str("log_level", level).
		Str("log_format", cfg.Logging.Format).
		Msg("configuration loaded successfully")

	p, err := newPipeline(cfg, pipelineOptions{
		inventoryPath: inventoryPath,
		countersPath:  countersPath,
		hidden:        hideLevels,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	outputFormats := resolveFormats(cfg)
	outputPath := resolveOutputDir(cfg)
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		logger.Error().Err(err).Str("path", outputPath).Msg("failed to create output directory")
		fmt.Fprintf(os.Stderr, "❌ Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("🔄 Running fleet pass...")
	result, err := p.pass(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("fleet pass failed")
		fmt.Fprintf(os.Stderr, "❌ Fleet pass failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)

	writers := report.NewRegistry(p.timezone, cfg.Report.HTMLTemplate, p.columns)
	baseName := generateFilename(cfg.Report.FilenameTemplate, p.timezone)

	fmt.Println("📝 Writing reports:")
	failed := 0
	for _, format := range outputFormats {
		writer, err := writers.Get(format)
		if err != nil {
			logger.Error().Err(err).Str("format", format).Msg("unsupported format")
			fmt.Fprintf(os.Stderr, "   ❌ %v\n", err)
			failed++
			continue
		}

		reportPath := filepath.Join(outputPath, baseName+report.Extension(format))
		if err := writer.Write(result, reportPath); err != nil {
			logger.Error().Err(err).Str("format", format).Str("path", reportPath).Msg("failed to generate report")
			fmt.Fprintf(os.Stderr, "   ❌ %s report failed: %v\n", format, err)
			failed++
			continue
		}

		logger.Info().Str("format", format).Str("path", reportPath).Msg("report generated successfully")
		fmt.Printf("   ✅ %s\n", reportPath)
	}
	if failed == len(outputFormats) && failed > 0 {
		os.Exit(1)
	}

	if code := exitCode(result); code > 0 {
		os.Exit(code)
	}
}

// exitCode is 2 for a visible critical alert, 1 for a visible warning, else 0.
func exitCode(result *model.FleetReport) int {
	switch {
	case result.HasCritical():
		return 2
	case result.HasWarning():
		return 1
	default:
		return 0
	}
}

// printBanner prints the application banner.
func printBanner() {
	fmt.Printf("🔍 Fleet Console %s\n", Version)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// printSummary prints the pass summary.
func printSummary(result *model.FleetReport) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if result.Summary != nil {
		for _, kind := range model.TableKinds {
			fmt.Printf("   %-22s %d\n", kind.Title()+":", result.Summary.ByKind[kind])
		}
		fmt.Printf("   %-22s %d\n", "Warning rows:", result.Summary.WarningRows)
		fmt.Printf("   %-22s %d\n", "Critical rows:", result.Summary.CriticalRows)
	}
	fmt.Println()
	if result.AlertSummary != nil {
		fmt.Printf("   %-22s %d\n", "Total alerts:", result.AlertSummary.TotalAlerts)
		fmt.Printf("   %-22s %d\n", "Warning:", result.AlertSummary.WarningCount)
		fmt.Printf("   %-22s %d\n", "Critical:", result.AlertSummary.CriticalCount)
		if result.FilterActive {
			fmt.Printf("   %-22s %d\n", "Hidden by filter:", result.AlertSummary.HiddenAlerts)
		}
	}
	fmt.Printf("   %-22s %s\n", "Duration:", result.Duration.Round(time.Millisecond))
}

// resolveFormats determines the output formats to use.
// Command line flags take precedence over config file.
func resolveFormats(cfg *config.Config) []string {
	if len(formats) > 0 {
		return formats
	}
	if len(cfg.Report.Formats) > 0 {
		return cfg.Report.Formats
	}
	return []string{"excel", "html"}
}

// resolveOutputDir determines the output directory to use.
// Command line flags take precedence over config file.
func resolveOutputDir(cfg *config.Config) string {
	if outputDir != "" {
		return outputDir
	}
	if cfg.Report.OutputDir != "" {
		return cfg.Report.OutputDir
	}
	return "./reports"
}

// generateFilename creates a filename from the template.
// Supports the {{.Date}} placeholder.
func generateFilename(template string, tz *time.Location) string {
	if template == "" {
		template = "fleet_report_{{.Date}}"
	}

	dateStr := time.Now().In(tz).Format("2006-01-02")

	filename := strings.ReplaceAll(template, "{{.Date}}", dateStr)
	filename = strings.ReplaceAll(filename, "{{ .Date }}", dateStr)

	return filename
}
