package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/finops"
	"github.com/verdantlabs/ecoburn/internal/tui/components"
	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active

	if a.simErr != nil {
		return components.ContentCard("⚠ Simulation Error", a.simErr.Error(), cw)
	}
	if a.est == nil {
		return components.ContentCard("Overview", "No estimate available.", cw)
	}
	est := a.est
	var b strings.Builder

	// Row 1: Metric cards
	var inTok, outTok int64
	for _, run := range est.AgentRuns {
		inTok += run.TotalInputTokens
		outTok += run.TotalOutputTokens
	}

	totalNote := fmt.Sprintf("%d agents", est.AgentCount)
	if a.budgetLimit != nil && *a.budgetLimit > 0 {
		totalNote = fmt.Sprintf("%.0f%% of budget", est.TotalCost / *a.budgetLimit * 100)
	}

	cards := []components.Metric{
		{Label: "Total Cost", Value: cli.FormatCostPrecise(est.TotalCost), Note: totalNote},
		{Label: "Cost / Turn", Value: cli.FormatCostPrecise(est.CostPerTurn), Note: fmt.Sprintf("%d turns", est.Turns)},
		{Label: "Tokens", Value: cli.FormatTokens(inTok + outTok), Note: cli.FormatTokens(outTok) + " out"},
		{Label: "Coordination", Value: cli.FormatCostPrecise(est.OverheadAmount), Note: cli.FormatPercent(est.OverheadFraction) + " overhead"},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: Cumulative cost sparkline
	series := cumulativeCostSeries(est)
	if len(series) >= 2 {
		innerW := components.CardInnerWidth(cw)
		dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

		spark := components.Sparkline(fitToWidth(series, innerW), t.Accent)
		caption := dimStyle.Render(fmt.Sprintf("turn 1 → %d, coordination included", est.Turns))

		b.WriteString(components.ContentCard(
			fmt.Sprintf("Cumulative Cost · %s final", cli.FormatCostPrecise(est.TotalCost)),
			spark+"\n"+caption,
			cw,
		))
		b.WriteString("\n")
	}

	// Row 3: Agent cost share + budget/optimization
	halves := components.LayoutRow(cw, 2)

	shareCard := components.ContentCard("Agent Cost Share",
		a.agentShareRows(est, components.CardInnerWidth(halves[0])), halves[0])

	var rightCard string
	if a.budgetLimit != nil && *a.budgetLimit > 0 {
		rightCard = a.budgetCard(est, halves[1])
	} else {
		rightCard = a.optimizationCard(est, halves[1])
	}

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Agent Cost Share",
			a.agentShareRows(est, components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		if a.budgetLimit != nil && *a.budgetLimit > 0 {
			b.WriteString(a.budgetCard(est, cw))
		} else {
			b.WriteString(a.optimizationCard(est, cw))
		}
	} else {
		b.WriteString(components.CardRow([]string{shareCard, rightCard}))
	}
	b.WriteString("\n")

	// What-if hint
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	hint := "  [+/-] turns · [ctrl+↑/↓] repo context · [r] reset"
	if a.turnsDelta != 0 || a.contextDelta != 0 {
		hint += " · adjustments active"
	}
	b.WriteString(hintStyle.Render(hint))

	return b.String()
}

// cumulativeCostSeries sums per-turn cost across all agents, applies the
// coordination overhead, and returns the running total per turn.
func cumulativeCostSeries(est *finops.WorkflowEstimate) []float64 {
	if est.Turns <= 0 {
		return nil
	}
	perTurn := make([]float64, est.Turns)
	for _, run := range est.AgentRuns {
		for _, rec := range run.Trace {
			if rec.Turn >= 1 && rec.Turn <= est.Turns {
				perTurn[rec.Turn-1] += rec.Cost
			}
		}
	}

	series := make([]float64, est.Turns)
	var sum float64
	for i, c := range perTurn {
		sum += c
		series[i] = sum * (1 + est.OverheadFraction)
	}
	return series
}

// fitToWidth downsamples a series to at most w points, keeping the last
// value exact so the sparkline ends at the true total.
func fitToWidth(series []float64, w int) []float64 {
	if w < 2 || len(series) <= w {
		return series
	}
	out := make([]float64, w)
	for i := range out {
		out[i] = series[i*(len(series)-1)/(w-1)]
	}
	return out
}

func (a App) agentShareRows(est *finops.WorkflowEstimate, innerW int) string {
	if len(est.AgentRuns) == 0 || est.Subtotal <= 0 {
		return "No agent runs."
	}
	t := theme.Active

	nameW := 0
	for _, run := range est.AgentRuns {
		if len(run.Agent) > nameW {
			nameW = len(run.Agent)
		}
	}
	if nameW > 16 {
		nameW = 16
	}
	if nameW < 6 {
		nameW = 6
	}

	// nameW + space + bar + space + "$0.0000 (100%)"
	barW := innerW - nameW - 17
	if barW < 8 {
		barW = 8
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	trackStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var rows []string
	for _, run := range est.AgentRuns {
		pct := run.TotalCost / est.Subtotal
		filled := int(pct * float64(barW))
		if filled > barW {
			filled = barW
		}
		if filled < 1 && run.TotalCost > 0 {
			filled = 1
		}

		rows = append(rows, fmt.Sprintf("%s %s%s %s",
			nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(run.Agent, nameW))),
			barStyle.Render(strings.Repeat("█", filled)),
			trackStyle.Render(strings.Repeat("░", barW-filled)),
			valueStyle.Render(fmt.Sprintf("%s (%.0f%%)", cli.FormatCostPrecise(run.TotalCost), pct*100))))
	}
	return strings.Join(rows, "\n")
}

func (a App) budgetCard(est *finops.WorkflowEstimate, outerW int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(outerW)

	barW := innerW - 18
	if barW < 10 {
		barW = 10
	}
	gauge := components.GaugeBar("Run", est.TotalCost / *a.budgetLimit, 6, barW)

	noteStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	note := noteStyle.Render(fmt.Sprintf("%s of %s budget",
		cli.FormatCostPrecise(est.TotalCost), cli.FormatCost(*a.budgetLimit)))

	return components.ContentCard("Budget", gauge+"\n"+note, outerW)
}

func (a App) optimizationCard(est *finops.WorkflowEstimate, outerW int) string {
	t := theme.Active

	valStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.suggestions) == 0 {
		return components.ContentCard("Optimization",
			mutedStyle.Render("No suggestions. Configuration looks lean."), outerW)
	}

	savings := est.TotalCost - a.optimized
	body := fmt.Sprintf("%s %s\n%s",
		valStyle.Render(cli.FormatCostPrecise(a.optimized)),
		mutedStyle.Render(fmt.Sprintf("optimized (save %s)", cli.FormatCostPrecise(savings))),
		mutedStyle.Render(fmt.Sprintf("%d suggestions · press [v] for details", len(a.suggestions))))

	return components.ContentCard("Optimization", body, outerW)
}
