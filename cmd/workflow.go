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
	flagWfFile          string
	flagWfDemo          bool
	flagWfOverhead      float64
	flagWfNoSuggest     bool
	flagWfTasksPerMonth int
)

var workflowCmd = &cobra.Command{
	Use:   "workflow [scenario.toml]",
	Short: "Estimate a multi-agent workflow with optimization advice",
	Long: "Run every agent in a scenario against the task independently, sum the\n" +
		"costs, add coordination overhead, and ask the advisor where the money\n" +
		"could be saved.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	workflowCmd.Flags().StringVarP(&flagWfFile, "file", "f", "", "Scenario TOML file")
	workflowCmd.Flags().BoolVar(&flagWfDemo, "demo", false, "Use the built-in demo scenario")
	workflowCmd.Flags().Float64Var(&flagWfOverhead, "overhead", -1, "Coordination overhead fraction (overrides scenario)")
	workflowCmd.Flags().BoolVar(&flagWfNoSuggest, "no-suggest", false, "Skip optimization suggestions")
	workflowCmd.Flags().IntVar(&flagWfTasksPerMonth, "tasks-per-month", 0, "Project monthly/annual spend at this task rate")
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflow(_ *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault()

	path := flagWfFile
	if path == "" && len(args) == 1 {
		path = args[0]
	}

	sc, err := resolveScenario(cfg, path, flagWfDemo)
	if err != nil {
		return err
	}

	overhead := sc.CoordinationOverhead
	if flagWfOverhead >= 0 {
		overhead = flagWfOverhead
	}

	est, err := finops.SimulateWorkflow(sc.Agents, sc.Task, overhead)
	if err != nil {
		return err
	}

	var suggestions []finops.Suggestion
	if !flagWfNoSuggest {
		suggestions = cfg.Advisor.Advisor().Suggest(est)
	}

	if flagJSON {
		return printJSON(workflowJSON(est, suggestions))
	}

	renderWorkflow(est, suggestions)
	return nil
}

// resolveScenario picks the scenario source: explicit file, demo flag, or the
// demo as a last resort so the command always has something to show.
func resolveScenario(cfg config.Config, path string, demo bool) (*scenario.Scenario, error) {
	if path != "" {
		return scenario.Load(path, config.CatalogWith(cfg.Pricing))
	}
	if !demo && !flagQuiet {
		fmt.Println("  No scenario given, using the built-in demo (see --file).")
	}
	return scenario.Demo(), nil
}

func renderWorkflow(est *finops.WorkflowEstimate, suggestions []finops.Suggestion) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("WORKFLOW ESTIMATE  %s", est.Task)))
	fmt.Println()
	fmt.Printf("  %d agents, %d turns each\n\n", est.AgentCount, est.Turns)

	// Per-agent breakdown with cost share bars.
	maxCost := 0.0
	for _, run := range est.AgentRuns {
		if run.TotalCost > maxCost {
			maxCost = run.TotalCost
		}
	}

	rows := make([][]string, 0, len(est.AgentRuns))
	for _, run := range est.AgentRuns {
		turns := fmt.Sprintf("%d", run.TurnsExecuted)
		if run.Truncated {
			turns = cli.Warn(turns + "!")
		}
		rows = append(rows, []string{
			run.Agent,
			run.Model,
			turns,
			cli.FormatTokens(run.TotalInputTokens),
			cli.FormatCost(run.TotalCost),
			cli.RenderHorizontalBar(run.TotalCost, maxCost, 16),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Agents",
		Headers: []string{"Agent", "Model", "Turns", "Input", "Cost", "Share"},
		Rows:    rows,
	}))

	for _, run := range est.AgentRuns {
		if run.Truncated {
			fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf(
				"%s hit its context window after %d turns.", run.Agent, run.TurnsExecuted)))
		}
	}

	totals := [][]string{
		{"Agent subtotal", cli.FormatCost(est.Subtotal)},
		{fmt.Sprintf("Coordination (+%.0f%%)", est.OverheadFraction*100), cli.FormatCost(est.OverheadAmount)},
		{"---"},
		{"Total per task", cli.FormatCost(est.TotalCost)},
		{"Cost per turn", cli.FormatCostPrecise(est.CostPerTurn)},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Totals",
		Headers: []string{"Metric", "Value"},
		Rows:    totals,
	}))

	if len(suggestions) > 0 {
		sugRows := make([][]string, 0, len(suggestions)+2)
		saved := 0.0
		for _, sg := range suggestions {
			sugRows = append(sugRows, []string{
				string(sg.Category),
				sg.Recommendation,
				cli.FormatCost(sg.EstimatedSavings),
			})
			saved += sg.EstimatedSavings
		}
		sugRows = append(sugRows, []string{"---"})
		sugRows = append(sugRows, []string{"", "Optimized total per task",
			cli.FormatCost(finops.OptimizedTotal(est, suggestions))})

		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Advisor",
			Headers: []string{"Category", "Recommendation", "Savings"},
			Rows:    sugRows,
		}))
		fmt.Printf("  %s\n\n", cli.Good(fmt.Sprintf("Potential savings: %s per task (%.0f%%)",
			cli.FormatCost(saved), saved/est.TotalCost*100)))
	}

	if flagWfTasksPerMonth > 0 {
		monthly := est.TotalCost * float64(flagWfTasksPerMonth)
		optimized := finops.OptimizedTotal(est, suggestions) * float64(flagWfTasksPerMonth)

		projRows := [][]string{
			{"Tasks per month", fmt.Sprintf("%d", flagWfTasksPerMonth)},
			{"Monthly", cli.FormatCost(monthly)},
			{"Annual", cli.FormatCost(monthly * 12)},
		}
		if len(suggestions) > 0 {
			projRows = append(projRows, []string{"Monthly (optimized)", cli.FormatCost(optimized)})
			projRows = append(projRows, []string{"Annual (optimized)", cli.FormatCost(optimized * 12)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Projection",
			Headers: []string{"Metric", "Value"},
			Rows:    projRows,
		}))
	}
}

type agentRunJSON struct {
	Agent             string  `json:"agent"`
	Model             string  `json:"model"`
	TotalCost         float64 `json:"total_cost_usd"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TurnsExecuted     int     `json:"turns_executed"`
	Truncated         bool    `json:"truncated"`
}

type suggestionJSON struct {
	Category         string  `json:"category"`
	Agent            string  `json:"agent,omitempty"`
	Recommendation   string  `json:"recommendation"`
	EstimatedSavings float64 `json:"estimated_savings_usd"`
}

type workflowJSONOut struct {
	Task             string           `json:"task"`
	Turns            int              `json:"turns"`
	AgentCount       int              `json:"agent_count"`
	Agents           []agentRunJSON   `json:"agents"`
	Subtotal         float64          `json:"subtotal_usd"`
	OverheadFraction float64          `json:"overhead_fraction"`
	OverheadAmount   float64          `json:"overhead_usd"`
	TotalCost        float64          `json:"total_cost_usd"`
	CostPerTurn      float64          `json:"cost_per_turn_usd"`
	Suggestions      []suggestionJSON `json:"suggestions"`
	OptimizedTotal   float64          `json:"optimized_total_usd"`
}

func workflowJSON(est *finops.WorkflowEstimate, suggestions []finops.Suggestion) workflowJSONOut {
	agents := make([]agentRunJSON, len(est.AgentRuns))
	for i, run := range est.AgentRuns {
		agents[i] = agentRunJSON{
			Agent:             run.Agent,
			Model:             run.Model,
			TotalCost:         run.TotalCost,
			TotalInputTokens:  run.TotalInputTokens,
			TotalOutputTokens: run.TotalOutputTokens,
			TurnsExecuted:     run.TurnsExecuted,
			Truncated:         run.Truncated,
		}
	}

	out := workflowJSONOut{
		Task:             est.Task,
		Turns:            est.Turns,
		AgentCount:       est.AgentCount,
		Agents:           agents,
		Subtotal:         est.Subtotal,
		OverheadFraction: est.OverheadFraction,
		OverheadAmount:   est.OverheadAmount,
		TotalCost:        est.TotalCost,
		CostPerTurn:      est.CostPerTurn,
		Suggestions:      make([]suggestionJSON, 0, len(suggestions)),
		OptimizedTotal:   finops.OptimizedTotal(est, suggestions),
	}
	for _, sg := range suggestions {
		out.Suggestions = append(out.Suggestions, suggestionJSON{
			Category:         string(sg.Category),
			Agent:            sg.Agent,
			Recommendation:   sg.Recommendation,
			EstimatedSavings: sg.EstimatedSavings,
		})
	}
	return out
}
