// Package cmd implements the ecoburn CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	region := config.Region(cfg)
	gpuKey := config.GPUKey(cfg)

	fmt.Println("  [General]")
	fmt.Printf("    Region:        %s (%d g CO2/kWh)\n", region, compute.IntensityFor(region))
	if p, ok := compute.LookupGPU(gpuKey); ok {
		fmt.Printf("    GPU:           %s (%s)\n", gpuKey, p.Name)
	} else {
		fmt.Printf("    GPU:           %s (unknown profile)\n", gpuKey)
	}
	if rate := config.CostPerHour(cfg); rate != nil {
		fmt.Printf("    Cost per hour: $%.2f (override)\n", *rate)
	} else {
		fmt.Println("    Cost per hour: GPU profile rate")
	}
	fmt.Println()

	fmt.Println("  [Budget]")
	if l := config.BudgetLimit(cfg); l != nil {
		fmt.Printf("    Run budget:  $%.2f\n", *l)
	} else {
		fmt.Println("    Run budget:  unlimited")
	}
	if l := config.CarbonLimit(cfg); l != nil {
		fmt.Printf("    Carbon gate: %.2f kg CO2e\n", *l)
	} else {
		fmt.Println("    Carbon gate: unlimited")
	}
	fmt.Println()

	adv := cfg.Advisor.Advisor()
	fmt.Println("  [Advisor]")
	fmt.Printf("    Downgrade:   %q agents to %s (save %.0f%% of their cost)\n",
		adv.HighTierMarker, adv.DowngradeTarget, adv.DowngradeRatio*100)
	fmt.Printf("    Prune:       context above %.1fx window, saves %.0f%%\n",
		adv.PruneThreshold, adv.PruneRatio*100)
	fmt.Printf("    Consolidate: above %d agents and $%.2f total, saves %.0f%%\n",
		adv.ConsolidateMinAgents, adv.ConsolidateThreshold, adv.ConsolidateRatio*100)
	fmt.Println()

	fmt.Println("  [Daemon]")
	if cfg.Daemon.Addr != "" {
		fmt.Printf("    Address:   %s\n", cfg.Daemon.Addr)
	} else {
		fmt.Println("    Address:   127.0.0.1:8787 (default)")
	}
	if cfg.Daemon.ScanDir != "" {
		fmt.Printf("    Scan dir:  %s\n", cfg.Daemon.ScanDir)
	}
	if cfg.Daemon.ScanCron != "" {
		fmt.Printf("    Scan cron: %s\n", cfg.Daemon.ScanCron)
	}
	if cfg.Daemon.TelegramToken != "" {
		fmt.Printf("    Telegram:  %s (chat %d)\n", maskToken(cfg.Daemon.TelegramToken), cfg.Daemon.TelegramChatID)
	} else {
		fmt.Println("    Telegram:  not configured")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if n := len(cfg.Pricing.Overrides); n > 0 {
		fmt.Println("  [Pricing]")
		fmt.Printf("    Overrides: %d model(s)\n", n)
		fmt.Println()
	}

	fmt.Println("  Run `ecoburn setup` to reconfigure.")
	return nil
}

func maskToken(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-4:]
	}
	if len(token) > 4 {
		return token[:4] + "..."
	}
	return "****"
}
