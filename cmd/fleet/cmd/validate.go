package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleet-console/internal/config"
	"fleet-console/internal/inventory"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config, counter and inventory files",
	Long: `Load and validate the config file (format, required fields, ranges,
threshold ordering, timezone and severity levels), then the counter
definitions and the inventory snapshot it points to.`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate executes the validate command logic.
func runValidate(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()

	// Load calls Validate
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Config is valid: %s\n", configPath)

	counters, err := config.LoadCounters(cfg.Inventory.Counters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Counter definitions invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Counter definitions are valid: %s (%d active, %d total)\n",
		cfg.Inventory.Counters, config.CountActiveCounters(counters), len(counters))

	inv, err := inventory.Load(cfg.Inventory.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Inventory snapshot invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Inventory snapshot is valid: %s (%d hosts, %d VMs, %d SRs, %d VDIs)\n",
		cfg.Inventory.Path, len(inv.Hosts()), len(inv.RealVMs()), len(inv.SRs()), len(inv.VDIs()))
}
