package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
	"github.com/verdantlabs/ecoburn/internal/scenario"
)

var (
	flagSimFile    string
	flagSimDemo    bool
	flagSimModel   string
	flagSimSystem  int64
	flagSimContext int64
	flagSimTurns   int
	flagSimOutput  int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate one agent's conversation cost turn by turn",
	Long: "Replay a multi-turn agent conversation against a pricing model.\n" +
		"Each turn resends the system prompt, the repo context, and the full\n" +
		"conversation history, which is what makes long sessions expensive.",
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&flagSimFile, "file", "f", "", "Scenario TOML file (the first agent is simulated)")
	simulateCmd.Flags().BoolVar(&flagSimDemo, "demo", false, "Use the built-in demo scenario")
	simulateCmd.Flags().StringVarP(&flagSimModel, "model", "m", "gemini-1.5-pro", "Model to price against")
	simulateCmd.Flags().Int64Var(&flagSimSystem, "system-prompt", 2000, "System prompt tokens sent every turn")
	simulateCmd.Flags().Int64Var(&flagSimContext, "context", 150000, "Repo context tokens sent every turn")
	simulateCmd.Flags().IntVarP(&flagSimTurns, "turns", "t", 25, "Conversation turns")
	simulateCmd.Flags().Int64Var(&flagSimOutput, "output", 1000, "Average output tokens per turn")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	catalog := config.CatalogWith(cfg.Pricing)

	var (
		agents []finops.AgentConfig
		task   finops.TaskProfile
	)

	switch {
	case flagSimFile != "":
		sc, err := scenario.Load(flagSimFile, catalog)
		if err != nil {
			return err
		}
		agents, task = sc.Agents, sc.Task
	case flagSimDemo:
		sc := scenario.Demo()
		agents, task = sc.Agents, sc.Task
	default:
		pricing, ok := catalog[config.NormalizeModelName(flagSimModel)]
		if !ok {
			return fmt.Errorf("unknown model %q (see `ecoburn models`)", flagSimModel)
		}
		agents = []finops.AgentConfig{{
			Name:               "agent",
			Pricing:            pricing,
			SystemPromptTokens: flagSimSystem,
		}}
		task = finops.TaskProfile{
			Name:                   "ad-hoc task",
			RepoContextTokens:      flagSimContext,
			Turns:                  flagSimTurns,
			AvgOutputTokensPerTurn: flagSimOutput,
		}
	}

	res, err := finops.Simulate(agents, task)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(simulationJSON(res))
	}

	renderSimulation(res, task)
	return nil
}

// maxTurnRows caps the turn table; long traces show head and tail.
const maxTurnRows = 20

func renderSimulation(res *finops.SimulationResult, task finops.TaskProfile) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("AGENT SIMULATION  %s", res.Task)))
	fmt.Println()
	fmt.Printf("  Agent: %s  Model: %s\n", res.Agent, res.Model)
	fmt.Printf("  Per turn: %s context + %s avg output\n\n",
		cli.FormatTokens(task.RepoContextTokens), cli.FormatTokens(task.AvgOutputTokensPerTurn))

	trace := res.Trace
	skipped := 0
	if len(trace) > maxTurnRows {
		skipped = len(trace) - maxTurnRows
	}

	rows := make([][]string, 0, maxTurnRows+2)
	for i, tr := range trace {
		if skipped > 0 && i == maxTurnRows-1 {
			rows = append(rows, []string{"---"})
			tr = trace[len(trace)-1]
			rows = append(rows, turnRow(tr))
			break
		}
		rows = append(rows, turnRow(tr))
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Turn", "Input", "Output", "Cost", "Cumulative"},
		Rows:    rows,
	}))
	if skipped > 0 {
		fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("(%d middle turns hidden)", skipped)))
	}

	totals := [][]string{
		{"Turns executed", fmt.Sprintf("%d of %d", res.TurnsExecuted, task.Turns)},
		{"Input tokens", cli.FormatTokens(res.TotalInputTokens)},
		{"Output tokens", cli.FormatTokens(res.TotalOutputTokens)},
		{"---"},
		{"Total cost", cli.FormatCost(res.TotalCost)},
	}
	if res.TurnsExecuted > 0 {
		totals = append(totals, []string{"Cost per turn", cli.FormatCostPrecise(res.TotalCost / float64(res.TurnsExecuted))})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Totals",
		Headers: []string{"Metric", "Value"},
		Rows:    totals,
	}))

	if res.Truncated {
		fmt.Printf("  %s\n\n", cli.Warn(fmt.Sprintf(
			"Context window exceeded after turn %d; remaining turns not charged.", res.TurnsExecuted)))
	}
}

func turnRow(tr finops.TurnRecord) []string {
	return []string{
		fmt.Sprintf("%d", tr.Turn),
		cli.FormatTokens(tr.InputTokens),
		cli.FormatTokens(tr.OutputTokens),
		cli.FormatCostPrecise(tr.Cost),
		cli.FormatCostPrecise(tr.CumulativeCost),
	}
}

type turnJSON struct {
	Turn           int     `json:"turn"`
	InputTokens    int64   `json:"input_tokens"`
	OutputTokens   int64   `json:"output_tokens"`
	Cost           float64 `json:"cost_usd"`
	CumulativeCost float64 `json:"cumulative_cost_usd"`
}

type simJSON struct {
	Task              string     `json:"task"`
	Agent             string     `json:"agent"`
	Model             string     `json:"model"`
	Turns             []turnJSON `json:"turns"`
	TotalCost         float64    `json:"total_cost_usd"`
	TotalInputTokens  int64      `json:"total_input_tokens"`
	TotalOutputTokens int64      `json:"total_output_tokens"`
	TurnsExecuted     int        `json:"turns_executed"`
	Truncated         bool       `json:"truncated"`
}

func simulationJSON(res *finops.SimulationResult) simJSON {
	turns := make([]turnJSON, len(res.Trace))
	for i, tr := range res.Trace {
		turns[i] = turnJSON{
			Turn:           tr.Turn,
			InputTokens:    tr.InputTokens,
			OutputTokens:   tr.OutputTokens,
			Cost:           tr.Cost,
			CumulativeCost: tr.CumulativeCost,
		}
	}
	return simJSON{
		Task:              res.Task,
		Agent:             res.Agent,
		Model:             res.Model,
		Turns:             turns,
		TotalCost:         res.TotalCost,
		TotalInputTokens:  res.TotalInputTokens,
		TotalOutputTokens: res.TotalOutputTokens,
		TurnsExecuted:     res.TurnsExecuted,
		Truncated:         res.Truncated,
	}
}
