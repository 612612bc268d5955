package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/tui/components"
	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

const (
	settingsFieldTheme = iota
	settingsFieldRegion
	settingsFieldGPU
	settingsFieldBudget
	settingsFieldCarbon
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 128
	ti.Width = 40
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldTheme:
		names := make([]string, len(theme.All))
		for i, th := range theme.All {
			names[i] = th.Name
		}
		ti.Placeholder = strings.Join(names, ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	case settingsFieldRegion:
		ti.Placeholder = strings.Join(compute.Regions(), ", ")
		ti.SetValue(a.cfg.General.Region)
	case settingsFieldGPU:
		keys := make([]string, 0, len(compute.Profiles))
		for _, p := range compute.SortedProfiles() {
			keys = append(keys, p.Key)
		}
		ti.Placeholder = strings.Join(keys, ", ")
		ti.SetValue(a.cfg.General.GPU)
	case settingsFieldBudget:
		ti.Placeholder = "5.00 (USD per run, empty = unlimited)"
		if a.cfg.Budget.RunUSD != nil {
			ti.SetValue(strconv.FormatFloat(*a.cfg.Budget.RunUSD, 'f', -1, 64))
		}
	case settingsFieldCarbon:
		ti.Placeholder = "2.5 (kg CO2e per run, empty = unlimited)"
		if a.cfg.Budget.CarbonKg != nil {
			ti.SetValue(strconv.FormatFloat(*a.cfg.Budget.CarbonKg, 'f', -1, 64))
		}
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

func (a *App) settingsSave() {
	val := strings.TrimSpace(a.settings.input.Value())

	switch a.settings.cursor {
	case settingsFieldTheme:
		found := false
		for _, th := range theme.All {
			if th.Name == val {
				found = true
				break
			}
		}
		if !found {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return
		}
		a.cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldRegion:
		if val == "" {
			a.settings.saveErr = fmt.Errorf("region cannot be empty")
			return
		}
		a.cfg.General.Region = val
	case settingsFieldGPU:
		if _, ok := compute.LookupGPU(val); !ok {
			a.settings.saveErr = fmt.Errorf("unknown GPU %q", val)
			return
		}
		a.cfg.General.GPU = val
	case settingsFieldBudget:
		ptr, err := parseBudgetInput(val)
		if err != nil {
			a.settings.saveErr = err
			return
		}
		a.cfg.Budget.RunUSD = ptr
	case settingsFieldCarbon:
		ptr, err := parseBudgetInput(val)
		if err != nil {
			a.settings.saveErr = err
			return
		}
		a.cfg.Budget.CarbonKg = ptr
	}

	a.settings.saveErr = config.Save(a.cfg)
}

// parseBudgetInput parses an optional budget value. Empty clears the limit.
func parseBudgetInput(val string) (*float64, error) {
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", val)
	}
	if f < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return &f, nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	type field struct {
		label string
		value string
	}

	themeName := cfg.Appearance.Theme
	if themeName == "" {
		themeName = theme.Moss.Name
	}

	gpuDisplay := cfg.General.GPU
	if p, ok := compute.LookupGPU(cfg.General.GPU); ok {
		gpuDisplay = fmt.Sprintf("%s (%s)", cfg.General.GPU, p.Name)
	}

	fields := []field{
		{"Theme", themeName},
		{"Region", fmt.Sprintf("%s (%d g CO2/kWh)", cfg.General.Region, compute.IntensityFor(cfg.General.Region))},
		{"GPU", gpuDisplay},
		{"Run Budget", func() string {
			if cfg.Budget.RunUSD != nil {
				return fmt.Sprintf("$%.2f", *cfg.Budget.RunUSD)
			}
			return "(unlimited)"
		}()},
		{"Carbon Gate", func() string {
			if cfg.Budget.CarbonKg != nil {
				return fmt.Sprintf("%.2f kg CO2e", *cfg.Budget.CarbonKg)
			}
			return "(unlimited)"
		}()},
	}

	var formBody strings.Builder
	for i, f := range fields {
		// Show text input if currently editing this field
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-14s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-14s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker)
			formBody.WriteString(label)
			formBody.WriteString(value)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(label) + lipgloss.Width(value)
			innerW := components.CardInnerWidth(cw)
			if padLen := innerW - usedWidth; padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-14s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	// Advisor thresholds, read-only. Edit via config file or env.
	adv := a.advisor
	var advBody strings.Builder
	advBody.WriteString(labelStyle.Render("Downgrade:   ") + valueStyle.Render(fmt.Sprintf(
		"models matching %q → %s, cost ×%.2f", adv.HighTierMarker, adv.DowngradeTarget, adv.DowngradeRatio)) + "\n")
	advBody.WriteString(labelStyle.Render("Prune:       ") + valueStyle.Render(fmt.Sprintf(
		"context above %.0f%% of window, input ×%.2f", adv.PruneThreshold*100, adv.PruneRatio)) + "\n")
	advBody.WriteString(labelStyle.Render("Consolidate: ") + valueStyle.Render(fmt.Sprintf(
		"%d+ agents with share below %.0f%%, cost ×%.2f", adv.ConsolidateMinAgents, adv.ConsolidateThreshold*100, adv.ConsolidateRatio)))

	// General info card
	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Scenario:    ") + valueStyle.Render(a.base.Name) + "\n")
	infoBody.WriteString(labelStyle.Render("Agents:      ") + valueStyle.Render(strconv.Itoa(len(a.base.Agents))) + "\n")
	infoBody.WriteString(labelStyle.Render("Config file: ") + valueStyle.Render(config.Path()))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Advisor Rules", advBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))

	return b.String()
}
