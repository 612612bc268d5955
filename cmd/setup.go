package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupValues collects the wizard's answers before they are written back
// into the config.
type setupValues struct {
	Region     string
	GPU        string
	Budget     string
	Carbon     string
	Theme      string
	DaemonAddr string
	Save       bool
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to ecoburn!")
	fmt.Println()

	vals := setupValues{
		Region:     config.Region(cfg),
		GPU:        config.GPUKey(cfg),
		Theme:      cfg.Appearance.Theme,
		DaemonAddr: cfg.Daemon.Addr,
		Save:       true,
	}
	if cfg.Budget.RunUSD != nil {
		vals.Budget = strconv.FormatFloat(*cfg.Budget.RunUSD, 'f', -1, 64)
	}
	if cfg.Budget.CarbonKg != nil {
		vals.Carbon = strconv.FormatFloat(*cfg.Budget.CarbonKg, 'f', -1, 64)
	}

	form := newSetupForm(&vals)
	if os.Getenv("ECOBURN_ACCESSIBLE") != "" {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	if !vals.Save {
		fmt.Println("  Nothing saved.")
		return nil
	}

	cfg.General.Region = vals.Region
	cfg.General.GPU = vals.GPU
	cfg.Budget.RunUSD = parseOptionalFloat(vals.Budget)
	cfg.Budget.CarbonKg = parseOptionalFloat(vals.Carbon)
	cfg.Appearance.Theme = vals.Theme
	cfg.Daemon.Addr = strings.TrimSpace(vals.DaemonAddr)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `ecoburn setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

func newSetupForm(vals *setupValues) *huh.Form {
	regions := compute.Regions()
	regionOpts := make([]huh.Option[string], 0, len(regions))
	for _, r := range regions {
		label := fmt.Sprintf("%s (%d g CO2/kWh)", r, compute.IntensityFor(r))
		regionOpts = append(regionOpts, huh.NewOption(label, r))
	}

	profiles := compute.SortedProfiles()
	gpuOpts := make([]huh.Option[string], 0, len(profiles))
	for _, p := range profiles {
		label := fmt.Sprintf("%s ($%.2f/h, %dW)", p.Name, p.CostPerHour, p.TDPWatts)
		gpuOpts = append(gpuOpts, huh.NewOption(label, p.Key))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default region").
				Description("Determines grid carbon intensity for estimates.").
				Options(regionOpts...).
				Value(&vals.Region),
			huh.NewSelect[string]().
				Title("Default GPU").
				Description("Used for training cost and energy estimates.").
				Options(gpuOpts...).
				Value(&vals.GPU),
			huh.NewInput().
				Title("Budget gate (USD per run)").
				Placeholder("empty = unlimited").
				Validate(validateOptionalFloat).
				Value(&vals.Budget),
			huh.NewInput().
				Title("Carbon gate (kg CO2e per run)").
				Placeholder("empty = unlimited").
				Validate(validateOptionalFloat).
				Value(&vals.Carbon),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(
					huh.NewOption("Moss (default)", "moss"),
					huh.NewOption("Tokyo Night", "tokyo-night"),
					huh.NewOption("Terminal (ANSI 16)", "terminal"),
				).
				Value(&vals.Theme),
			huh.NewInput().
				Title("Daemon listen address").
				Description("Used by `ecoburn daemon`.").
				Placeholder("empty = 127.0.0.1:8787").
				Value(&vals.DaemonAddr),
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Discard").
				Value(&vals.Save),
		),
	)
}

func validateOptionalFloat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("enter a number or leave empty")
	}
	if f < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}
