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

func (a App) renderAdvisorTab(cw int) string {
	t := theme.Active

	if a.simErr != nil {
		return components.ContentCard("⚠ Simulation Error", a.simErr.Error(), cw)
	}
	if a.est == nil {
		return components.ContentCard("Advisor", "No estimate available.", cw)
	}
	est := a.est
	var b strings.Builder

	savings := est.TotalCost - a.optimized
	savingsNote := ""
	if est.TotalCost > 0 {
		savingsNote = fmt.Sprintf("-%.0f%%", savings/est.TotalCost*100)
	}

	cards := []components.Metric{
		{Label: "Current", Value: cli.FormatCostPrecise(est.TotalCost), Note: fmt.Sprintf("%d agents", est.AgentCount)},
		{Label: "Optimized", Value: cli.FormatCostPrecise(a.optimized), Note: "all suggestions applied"},
		{Label: "Savings", Value: cli.FormatCostPrecise(savings), Note: savingsNote},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	if len(a.suggestions) == 0 {
		mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		b.WriteString(components.ContentCard("Suggestions",
			mutedStyle.Render("Nothing to optimize. Models, context, and agent count all look proportionate."),
			cw))
		return b.String()
	}

	innerW := components.CardInnerWidth(cw)
	var body strings.Builder
	for i, sug := range a.suggestions {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(renderSuggestion(sug, innerW))
	}

	b.WriteString(components.ContentCard(
		fmt.Sprintf("Suggestions (%d)", len(a.suggestions)),
		body.String(),
		cw,
	))

	return b.String()
}

func renderSuggestion(sug finops.Suggestion, innerW int) string {
	t := theme.Active

	badgeColor := t.Blue
	switch sug.Category {
	case finops.ContextPruning:
		badgeColor = t.Yellow
	case finops.AgentConsolidation:
		badgeColor = t.Magenta
	}

	badgeStyle := lipgloss.NewStyle().Foreground(badgeColor).Background(t.Surface).Bold(true)
	agentStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	saveStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Width(innerW - 2)

	head := badgeStyle.Render(string(sug.Category))
	if sug.Agent != "" {
		head += agentStyle.Render(" · " + sug.Agent)
	}
	save := saveStyle.Render("save " + cli.FormatCostPrecise(sug.EstimatedSavings))

	pad := innerW - lipgloss.Width(head) - lipgloss.Width(save)
	if pad < 1 {
		pad = 1
	}

	return head + strings.Repeat(" ", pad) + save + "\n" +
		"  " + textStyle.Render(sug.Recommendation)
}
