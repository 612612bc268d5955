package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/config"
)

var (
	flagConfig string
	flagRegion string
	flagJSON   bool
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "ecoburn",
	Short: "AI cost and carbon estimator",
	Long: "Estimate what your AI workloads burn: agent conversation costs,\n" +
		"multi-agent workflow budgets, and GPU training money/energy/carbon.",
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.config/ecoburn/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagRegion, "region", "r", "", "Cloud region for carbon intensity")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if flagConfig != "" {
			os.Setenv("ECOBURN_CONFIG", flagConfig)
		}
	}
}

// loadConfigOrDefault returns the user config, keeping defaults when the file
// is broken. Config problems warn, they never block an estimate.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  config: %v (using defaults)\n", err)
	}
	return cfg
}

// activeRegion resolves the region: flag beats env beats config file.
func activeRegion(cfg config.Config) string {
	if flagRegion != "" {
		return flagRegion
	}
	return config.Region(cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
