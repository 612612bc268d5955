package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/tui/components"
	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

func (a App) renderTurnsTab(cw, contentH int) string {
	t := theme.Active

	if a.simErr != nil {
		return components.ContentCard("⚠ Simulation Error", a.simErr.Error(), cw)
	}
	if a.est == nil || len(a.est.AgentRuns) == 0 {
		return components.ContentCard("Turns", "No agent runs.", cw)
	}

	idx := a.agentIdx
	if idx >= len(a.est.AgentRuns) {
		idx = len(a.est.AgentRuns) - 1
	}
	run := a.est.AgentRuns[idx]
	var b strings.Builder

	// Agent selector
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	b.WriteString(fmt.Sprintf("  %s %s %s\n",
		selStyle.Render("◂ "+run.Agent+" ▸"),
		dimStyle.Render(fmt.Sprintf("(%d/%d)", idx+1, len(a.est.AgentRuns))),
		dimStyle.Render(run.Model+" · [j/k] switch agent")))

	// Per-turn cost chart
	chartH := 9
	if a.isCompactLayout() {
		chartH = 7
	}
	vals := make([]float64, len(run.Trace))
	labels := make([]string, len(run.Trace))
	for i, rec := range run.Trace {
		vals[i] = rec.Cost
		labels[i] = strconv.Itoa(rec.Turn)
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Per-Turn Cost · %s total", cli.FormatCostPrecise(run.TotalCost)),
		components.BarChart(vals, labels, t.Blue, components.CardInnerWidth(cw), chartH),
		cw,
	))
	b.WriteString("\n")

	if run.Truncated {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange)
		b.WriteString(warnStyle.Render(fmt.Sprintf(
			"  ⚠ context window filled at turn %d of %d", run.TurnsExecuted, a.est.Turns)))
		b.WriteString("\n")
	}

	// Trace table, sized to the remaining height
	used := lipgloss.Height(b.String())
	visible := contentH - used - 3
	if visible < 3 {
		visible = 3
	}

	scroll := a.turnScroll
	maxScroll := len(run.Trace) - visible
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scroll > maxScroll {
		scroll = maxScroll
	}

	end := scroll + visible
	if end > len(run.Trace) {
		end = len(run.Trace)
	}

	headStyle := lipgloss.NewStyle().Foreground(t.TextDim).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	costStyle := lipgloss.NewStyle().Foreground(t.Accent)

	b.WriteString(headStyle.Render(fmt.Sprintf("  %5s  %10s  %10s  %10s  %12s",
		"Turn", "Input", "Output", "Cost", "Cumulative")))
	b.WriteString("\n")

	for _, rec := range run.Trace[scroll:end] {
		b.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			rowStyle.Render(fmt.Sprintf("%5d", rec.Turn)),
			rowStyle.Render(fmt.Sprintf("%10s", cli.FormatTokens(rec.InputTokens))),
			rowStyle.Render(fmt.Sprintf("%10s", cli.FormatTokens(rec.OutputTokens))),
			costStyle.Render(fmt.Sprintf("%10s", cli.FormatCostPrecise(rec.Cost))),
			costStyle.Render(fmt.Sprintf("%12s", cli.FormatCostPrecise(rec.CumulativeCost)))))
	}

	if len(run.Trace) > visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  turns %d-%d of %d · [J/K] scroll",
			scroll+1, end, len(run.Trace))))
	}

	return b.String()
}
