package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/tui"
	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

var (
	flagTUIFile string
	flagTUIDemo bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui [scenario.toml]",
	Short: "Launch the interactive scenario explorer",
	Long: "Open a full-screen dashboard over a workflow scenario. Adjust turns and\n" +
		"repo context live and watch cost, token, and advisor output respond.",
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&flagTUIFile, "file", "f", "", "Scenario TOML file")
	tuiCmd.Flags().BoolVar(&flagTUIDemo, "demo", false, "Use the built-in demo scenario")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault()
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes.
	// Without this, lipgloss may default to Ascii profile (no colors).
	lipgloss.SetColorProfile(termenv.TrueColor)

	path := flagTUIFile
	if path == "" && len(args) == 1 {
		path = args[0]
	}

	sc, err := resolveScenario(cfg, path, flagTUIDemo)
	if err != nil {
		return err
	}

	app := tui.NewApp(sc, cfg.Advisor.Advisor(), config.BudgetLimit(cfg))
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
