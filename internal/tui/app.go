// Package tui provides the interactive Bubble Tea scenario explorer for
// ecoburn: live what-if adjustments over a workflow estimate.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
	"github.com/verdantlabs/ecoburn/internal/scenario"
	"github.com/verdantlabs/ecoburn/internal/tui/components"
	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

// App is the root Bubble Tea model. The base scenario never changes; what-if
// deltas apply on top of it and every adjustment recomputes the estimate.
type App struct {
	base        *scenario.Scenario
	advisor     finops.Advisor
	budgetLimit *float64
	cfg         config.Config

	// Computed for the current what-if state
	est         *finops.WorkflowEstimate
	suggestions []finops.Suggestion
	optimized   float64
	simErr      error

	// What-if deltas against the base task
	turnsDelta   int
	contextDelta int64

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	agentIdx   int // Turns tab selection
	turnScroll int
	settings   settingsState
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5

	// ctrl+up/down adjust repo context in steps of this many tokens
	contextStep = 10_000
)

// loadConfigOrDefault loads config, returning defaults on error so the TUI
// can always start even if the config file is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates the TUI model and computes the initial estimate.
func NewApp(sc *scenario.Scenario, adv finops.Advisor, budgetLimit *float64) App {
	a := App{
		base:        sc,
		advisor:     adv,
		budgetLimit: budgetLimit,
		cfg:         loadConfigOrDefault(),
	}
	a.recompute()
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.EnableMouseCellMotion
}

// effectiveTask returns the base task with what-if deltas applied.
func (a App) effectiveTask() finops.TaskProfile {
	task := a.base.Task
	task.Turns += a.turnsDelta
	if task.Turns < 1 {
		task.Turns = 1
	}
	task.RepoContextTokens += a.contextDelta
	if task.RepoContextTokens < 0 {
		task.RepoContextTokens = 0
	}
	return task
}

func (a *App) recompute() {
	est, err := finops.SimulateWorkflow(a.base.Agents, a.effectiveTask(), a.base.CoordinationOverhead)
	if err != nil {
		a.simErr = err
		return
	}
	a.simErr = nil
	a.est = est
	a.suggestions = a.advisor.Suggest(est)
	a.optimized = finops.OptimizedTotal(est, a.suggestions)

	if a.agentIdx >= len(est.AgentRuns) {
		a.agentIdx = len(est.AgentRuns) - 1
	}
	if a.agentIdx < 0 {
		a.agentIdx = 0
	}
	a.turnScroll = 0
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.MouseMsg:
		if a.showHelp {
			return a, nil
		}

		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == 1 && a.turnScroll > 0 {
				a.turnScroll--
			}
			return a, nil

		case tea.MouseButtonWheelDown:
			if a.activeTab == 1 {
				a.turnScroll++
			}
			return a, nil

		case tea.MouseButtonLeft:
			// Tab bar occupies the first line
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
			return a, nil
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}

	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// Settings edit mode intercepts all keys
	if a.activeTab == 4 && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// What-if adjustments, live recompute
	switch key {
	case "+", "=":
		a.turnsDelta++
		a.recompute()
		return a, nil
	case "-", "_":
		if a.base.Task.Turns+a.turnsDelta > 1 {
			a.turnsDelta--
			a.recompute()
		}
		return a, nil
	case "ctrl+up":
		a.contextDelta += contextStep
		a.recompute()
		return a, nil
	case "ctrl+down":
		remaining := a.base.Task.RepoContextTokens + a.contextDelta
		if remaining > 0 {
			step := int64(contextStep)
			if remaining < step {
				step = remaining
			}
			a.contextDelta -= step
			a.recompute()
		}
		return a, nil
	case "r":
		if a.turnsDelta != 0 || a.contextDelta != 0 {
			a.turnsDelta = 0
			a.contextDelta = 0
			a.recompute()
		}
		return a, nil
	}

	// Turns tab: agent cycling and table scroll
	if a.activeTab == 1 && a.est != nil {
		switch key {
		case "j", "down":
			if a.agentIdx < len(a.est.AgentRuns)-1 {
				a.agentIdx++
				a.turnScroll = 0
			}
			return a, nil
		case "k", "up":
			if a.agentIdx > 0 {
				a.agentIdx--
				a.turnScroll = 0
			}
			return a, nil
		case "J":
			a.turnScroll++
			return a, nil
		case "K":
			if a.turnScroll > 0 {
				a.turnScroll--
			}
			return a, nil
		case "g":
			a.turnScroll = 0
			return a, nil
		}
	}

	// Settings tab navigation (non-editing mode)
	if a.activeTab == 4 {
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	if key == "q" {
		return a, tea.Quit
	}

	// Tab navigation
	switch key {
	case "o":
		a.activeTab = 0
	case "t":
		a.activeTab = 1
	case "a":
		a.activeTab = 2
	case "v":
		a.activeTab = 3
	case "x":
		a.activeTab = 4
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	}
	return a, nil
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  ecoburn needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active
	h := a.height
	w := a.width

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Cyan).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Navigation"))
	b.WriteString("\n")
	navBindings := []struct{ key, desc string }{
		{"o t a v x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Select agent (Turns) / field (Settings)"},
		{"J K", "Scroll turn table"},
	}
	for _, bind := range navBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("What-if"))
	b.WriteString("\n")
	whatIfBindings := []struct{ key, desc string }{
		{"+ -", "More / fewer turns"},
		{"^↑ ^↓", "More / less repo context"},
		{"r", "Reset adjustments"},
	}
	for _, bind := range whatIfBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Actions"))
	b.WriteString("\n")
	actionBindings := []struct{ key, desc string }{
		{"Enter", "Edit setting"},
		{"Esc", "Cancel edit"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range actionBindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + scenario pill with what-if state
	pillStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	pillAccentStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	task := a.effectiveTask()
	pill := pillStyle.Render(" ") + pillAccentStyle.Render(a.base.Name)
	turnsLabel := fmt.Sprintf("%d turns", task.Turns)
	if a.turnsDelta != 0 {
		turnsLabel += fmt.Sprintf(" (%+d)", a.turnsDelta)
	}
	ctxLabel := cli.FormatTokens(task.RepoContextTokens) + " ctx"
	if a.contextDelta != 0 {
		sign, delta := "+", a.contextDelta
		if delta < 0 {
			sign, delta = "-", -delta
		}
		ctxLabel += fmt.Sprintf(" (%s%s)", sign, cli.FormatTokens(delta))
	}
	pill += pillStyle.Render(" │ ") + pillAccentStyle.Render(turnsLabel)
	pill += pillStyle.Render(" │ ") + pillAccentStyle.Render(ctxLabel)
	pill += pillStyle.Render(" ")

	pillRowStyle := lipgloss.NewStyle().
		Background(t.Surface).
		Width(w)

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		pillRowStyle.Render(pill)

	// 2. Status bar
	note := fmt.Sprintf("%d agents", len(a.base.Agents))
	if a.est != nil {
		note = fmt.Sprintf("%d agents · %s", len(a.base.Agents), cli.FormatCostPrecise(a.est.TotalCost))
	}
	statusBar := components.RenderStatusBar(w, note)

	// 3. Content zone height
	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	// 4. Tab content
	var content string
	switch a.activeTab {
	case 0:
		content = a.renderOverviewTab(cw)
	case 1:
		content = a.renderTurnsTab(cw, contentH)
	case 2:
		content = a.renderAgentsTab(cw)
	case 3:
		content = a.renderAdvisorTab(cw)
	case 4:
		content = a.renderSettingsTab(cw)
	}

	// 5. Truncate + pad to exactly contentH lines
	content = padHeight(truncateHeight(content, contentH), contentH)

	// 6. Fill each line to full width with background (fixes gaps between cards)
	content = fillLinesWithBackground(content, cw, t.Background)

	// 7. Place content with background fill (handles centering when w > cw)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	// 8. Stack vertically
	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	// 9. Fill any remaining terminal area with background
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
// This ensures gaps between cards and empty lines have proper background fill.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 1 // leading space in the tab bar
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)

		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Two-column separator between tabs.
		if i < len(components.Tabs)-1 {
			pos += 2
		}
	}
	return -1
}
