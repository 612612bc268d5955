// Package config handles ecoburn configuration: the TOML config file, the
// model pricing catalog, and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/verdantlabs/ecoburn/internal/finops"
)

// Config holds all ecoburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Budget     BudgetConfig     `toml:"budget"`
	Advisor    AdvisorConfig    `toml:"advisor"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Region      string   `toml:"region"`
	GPU         string   `toml:"gpu"`
	CostPerHour *float64 `toml:"cost_per_hour,omitempty"`
}

// BudgetConfig holds the per-run budget gates.
type BudgetConfig struct {
	RunUSD   *float64 `toml:"run_usd,omitempty"`
	CarbonKg *float64 `toml:"carbon_kg,omitempty"`
}

// AdvisorConfig tunes the optimization advisor. Unset fields keep the
// standard defaults.
type AdvisorConfig struct {
	HighTierMarker       string   `toml:"high_tier_marker,omitempty"`
	DowngradeTarget      string   `toml:"downgrade_target,omitempty"`
	DowngradeRatio       *float64 `toml:"downgrade_ratio,omitempty"`
	PruneThreshold       *float64 `toml:"prune_threshold,omitempty"`
	PruneRatio           *float64 `toml:"prune_ratio,omitempty"`
	ConsolidateMinAgents *int     `toml:"consolidate_min_agents,omitempty"`
	ConsolidateThreshold *float64 `toml:"consolidate_threshold,omitempty"`
	ConsolidateRatio     *float64 `toml:"consolidate_ratio,omitempty"`
}

// Advisor materializes the configured advisor over the defaults.
func (a AdvisorConfig) Advisor() finops.Advisor {
	adv := finops.DefaultAdvisor()
	if a.HighTierMarker != "" {
		adv.HighTierMarker = a.HighTierMarker
	}
	if a.DowngradeTarget != "" {
		adv.DowngradeTarget = a.DowngradeTarget
	}
	if a.DowngradeRatio != nil {
		adv.DowngradeRatio = *a.DowngradeRatio
	}
	if a.PruneThreshold != nil {
		adv.PruneThreshold = *a.PruneThreshold
	}
	if a.PruneRatio != nil {
		adv.PruneRatio = *a.PruneRatio
	}
	if a.ConsolidateMinAgents != nil {
		adv.ConsolidateMinAgents = *a.ConsolidateMinAgents
	}
	if a.ConsolidateThreshold != nil {
		adv.ConsolidateThreshold = *a.ConsolidateThreshold
	}
	if a.ConsolidateRatio != nil {
		adv.ConsolidateRatio = *a.ConsolidateRatio
	}
	return adv
}

// DaemonConfig holds daemon settings.
type DaemonConfig struct {
	Addr           string `toml:"addr,omitempty"`
	ScanDir        string `toml:"scan_dir,omitempty"`
	ScanCron       string `toml:"scan_cron,omitempty"`
	TelegramToken  string `toml:"telegram_token,omitempty"`
	TelegramChatID int64  `toml:"telegram_chat_id,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides.
type ModelPricingOverride struct {
	InputPerMTok  *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok *float64 `toml:"output_per_mtok,omitempty"`
	ContextWindow *int64   `toml:"context_window,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Region: "us-east",
			GPU:    "a100-40gb",
		},
		Appearance: AppearanceConfig{
			Theme: "moss",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ecoburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ecoburn")
}

// Path returns the full path to the config file. ECOBURN_CONFIG overrides
// the default location.
func Path() string {
	if p := os.Getenv("ECOBURN_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory, used for daemon
// runtime files.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ecoburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "ecoburn")
}

var dotenvOnce sync.Once

// loadDotEnv pulls a .env file from the working directory into the process
// environment. Missing files are fine.
func loadDotEnv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// Region returns the active region: env var first, then config, then the
// default.
func Region(cfg Config) string {
	if r := os.Getenv("ECOBURN_REGION"); r != "" {
		return r
	}
	if cfg.General.Region != "" {
		return cfg.General.Region
	}
	return "us-east"
}

// GPUKey returns the active GPU profile key: env var first, then config,
// then the default.
func GPUKey(cfg Config) string {
	if g := os.Getenv("ECOBURN_GPU"); g != "" {
		return g
	}
	if cfg.General.GPU != "" {
		return cfg.General.GPU
	}
	return "a100-40gb"
}

// CostPerHour returns the hourly rate override, or nil to use the GPU
// profile's on-demand rate.
func CostPerHour(cfg Config) *float64 {
	if v := os.Getenv("ECOBURN_COST_PER_HOUR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return &f
		}
	}
	return cfg.General.CostPerHour
}

// BudgetLimit returns the per-run USD budget gate, or nil for unlimited.
func BudgetLimit(cfg Config) *float64 {
	if v := os.Getenv("ECOBURN_BUDGET_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return &f
		}
	}
	return cfg.Budget.RunUSD
}

// CarbonLimit returns the per-run kg CO2e gate, or nil for unlimited.
func CarbonLimit(cfg Config) *float64 {
	if v := os.Getenv("ECOBURN_CARBON_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return &f
		}
	}
	return cfg.Budget.CarbonKg
}
