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

func (a App) renderAgentsTab(cw int) string {
	t := theme.Active

	if a.simErr != nil {
		return components.ContentCard("⚠ Simulation Error", a.simErr.Error(), cw)
	}
	if a.est == nil || len(a.est.AgentRuns) == 0 {
		return components.ContentCard("Agents", "No agents configured.", cw)
	}
	est := a.est
	var b strings.Builder

	headStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	costStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	compact := a.isCompactLayout()

	var roster strings.Builder
	if compact {
		roster.WriteString(headStyle.Render(fmt.Sprintf("%-14s %-18s %8s %6s %10s %10s",
			"Agent", "Model", "SysPmt", "Turns", "Tokens", "Cost")))
	} else {
		roster.WriteString(headStyle.Render(fmt.Sprintf("%-14s %-12s %-20s %8s %6s %10s %10s %10s",
			"Agent", "Role", "Model", "SysPmt", "Turns", "Input", "Output", "Cost")))
	}
	roster.WriteString("\n")

	for i, run := range est.AgentRuns {
		agent := a.agentFor(i, run.Agent)

		if compact {
			roster.WriteString(fmt.Sprintf("%s %s %s %s %s %s\n",
				nameStyle.Render(fmt.Sprintf("%-14s", truncStr(run.Agent, 14))),
				mutedStyle.Render(fmt.Sprintf("%-18s", truncStr(run.Model, 18))),
				mutedStyle.Render(fmt.Sprintf("%8s", cli.FormatTokens(agent.SystemPromptTokens))),
				nameStyle.Render(fmt.Sprintf("%6d", run.TurnsExecuted)),
				nameStyle.Render(fmt.Sprintf("%10s", cli.FormatTokens(run.TotalInputTokens+run.TotalOutputTokens))),
				costStyle.Render(fmt.Sprintf("%10s", cli.FormatCostPrecise(run.TotalCost)))))
		} else {
			roster.WriteString(fmt.Sprintf("%s %s %s %s %s %s %s %s\n",
				nameStyle.Render(fmt.Sprintf("%-14s", truncStr(run.Agent, 14))),
				mutedStyle.Render(fmt.Sprintf("%-12s", truncStr(agent.Role, 12))),
				mutedStyle.Render(fmt.Sprintf("%-20s", truncStr(run.Model, 20))),
				mutedStyle.Render(fmt.Sprintf("%8s", cli.FormatTokens(agent.SystemPromptTokens))),
				nameStyle.Render(fmt.Sprintf("%6d", run.TurnsExecuted)),
				nameStyle.Render(fmt.Sprintf("%10s", cli.FormatTokens(run.TotalInputTokens))),
				nameStyle.Render(fmt.Sprintf("%10s", cli.FormatTokens(run.TotalOutputTokens))),
				costStyle.Render(fmt.Sprintf("%10s", cli.FormatCostPrecise(run.TotalCost)))))
		}
	}

	b.WriteString(components.ContentCard(
		fmt.Sprintf("Roster · %d agents", est.AgentCount),
		strings.TrimRight(roster.String(), "\n"),
		cw,
	))
	b.WriteString("\n")

	// Context window fill at the final simulated turn. Agents near 100%
	// are about to truncate and are prime pruning candidates.
	innerW := components.CardInnerWidth(cw)
	labelW := 14
	barW := innerW - labelW - 26
	if barW < 10 {
		barW = 10
	}

	var gauges []string
	for i, run := range est.AgentRuns {
		agent := a.agentFor(i, run.Agent)
		if agent.Pricing.ContextWindow <= 0 || len(run.Trace) == 0 {
			continue
		}
		final := run.Trace[len(run.Trace)-1]
		pct := float64(final.InputTokens) / float64(agent.Pricing.ContextWindow)

		gauge := components.GaugeBar(truncStr(run.Agent, labelW), pct, labelW, barW)
		note := mutedStyle.Render(fmt.Sprintf(" %s / %s",
			cli.FormatTokens(final.InputTokens), cli.FormatTokens(agent.Pricing.ContextWindow)))
		gauges = append(gauges, gauge+note)
	}

	if len(gauges) > 0 {
		b.WriteString(components.ContentCard("Context Window Fill · final turn",
			strings.Join(gauges, "\n"), cw))
	}

	return b.String()
}

// agentFor returns the scenario agent backing run i, matching by index with
// a name-based fallback.
func (a App) agentFor(i int, name string) finops.AgentConfig {
	if i >= 0 && i < len(a.base.Agents) && a.base.Agents[i].Name == name {
		return a.base.Agents[i]
	}
	for _, agent := range a.base.Agents {
		if agent.Name == name {
			return agent
		}
	}
	return finops.AgentConfig{Name: name}
}
