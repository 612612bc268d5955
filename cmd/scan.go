package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/scan"
)

var (
	flagScanDir     string
	flagScanGPU     string
	flagScanBudget  float64
	flagScanCarbon  float64
	flagScanInclude []string
	flagScanExclude []string
	flagScanReport  string
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan a repository and gate on estimated training cost",
	Long: "Statically scan Python sources for training loops, project the GPU\n" +
		"cost and carbon of running them, and fail (exit 1) when the estimate\n" +
		"exceeds the budget. Reads .ecoburn.yml from the scanned directory;\n" +
		"flags win over the policy file. Writes GITHUB_OUTPUT when set.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&flagScanDir, "dir", "d", "", "Directory to scan (default current)")
	scanCmd.Flags().StringVarP(&flagScanGPU, "gpu", "g", "", "GPU profile for the projection")
	scanCmd.Flags().Float64Var(&flagScanBudget, "budget", -1, "Budget gate in USD (0 = unlimited)")
	scanCmd.Flags().Float64Var(&flagScanCarbon, "carbon-limit", -1, "Carbon gate in kg CO2e (0 = unlimited)")
	scanCmd.Flags().StringSliceVar(&flagScanInclude, "include", nil, "Include globs (default **/*.py)")
	scanCmd.Flags().StringSliceVar(&flagScanExclude, "exclude", nil, "Exclude globs (default test files)")
	scanCmd.Flags().StringVar(&flagScanReport, "report", "", "Write a markdown report to this path")
	rootCmd.AddCommand(scanCmd)
}

func runScan(_ *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault()

	dir := flagScanDir
	if dir == "" && len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	policy, err := scan.LoadPolicy(filepath.Join(dir, scan.PolicyFile))
	if err != nil {
		return err
	}

	gpu, region, budget, carbon := scanSettings(cfg, policy)
	include, exclude := flagScanInclude, flagScanExclude
	if policy != nil {
		if include == nil {
			include = policy.Include
		}
		if exclude == nil {
			exclude = policy.Exclude
		}
	}

	var progress scan.ProgressFunc
	if !flagQuiet && !flagJSON {
		progress = func(done, total int) {
			if done%25 == 0 || done == total {
				fmt.Fprintf(os.Stderr, "\r  Analyzing [%d/%d]", done, total)
			}
		}
	}

	res, err := scan.Run(scan.Options{
		Root:     dir,
		Include:  include,
		Exclude:  exclude,
		Progress: progress,
	})
	if err != nil {
		return err
	}
	if progress != nil && res.FilesScanned > 0 {
		fmt.Fprintf(os.Stderr, "\r  Analyzed %d files        \n", res.FilesScanned)
	}

	a := scan.Analyze(res, gpu, region, budget, carbon)

	if flagScanReport != "" {
		if err := os.WriteFile(flagScanReport, []byte(scan.RenderMarkdown(res, a)), 0o644); err != nil { //nolint:gosec // report is world-readable by design
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if err := scan.WriteGitHubOutput(a); err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  github output: %v\n", err)
	}

	if flagJSON {
		if err := printJSON(a); err != nil {
			return err
		}
	} else {
		renderScan(res, a)
	}

	if !a.Passed {
		return fmt.Errorf("cost gate failed: estimated %s against a %s budget",
			cli.FormatCost(a.EstimatedCost), scanBudgetLabel(a))
	}
	return nil
}

// scanSettings resolves GPU, region, and gates: flags beat the policy file,
// which beats config/env.
func scanSettings(cfg config.Config, policy *scan.Policy) (compute.GPUProfile, string, float64, float64) {
	gpuKey := flagScanGPU
	if gpuKey == "" && policy != nil && policy.GPU != "" {
		gpuKey = policy.GPU
	}
	if gpuKey == "" {
		gpuKey = config.GPUKey(cfg)
	}
	gpu, ok := compute.LookupGPU(gpuKey)
	if !ok {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  unknown GPU %q, using %s\n", gpuKey, compute.DefaultGPUKey)
		}
		gpu, _ = compute.LookupGPU(compute.DefaultGPUKey)
	}

	region := flagRegion
	if region == "" && policy != nil && policy.Region != "" {
		region = policy.Region
	}
	if region == "" {
		region = config.Region(cfg)
	}

	budget := 0.0
	switch {
	case flagScanBudget >= 0:
		budget = flagScanBudget
	case policy != nil && policy.BudgetLimit != nil:
		budget = *policy.BudgetLimit
	default:
		if l := config.BudgetLimit(cfg); l != nil {
			budget = *l
		}
	}

	carbon := 0.0
	switch {
	case flagScanCarbon >= 0:
		carbon = flagScanCarbon
	case policy != nil && policy.CarbonLimit != nil:
		carbon = *policy.CarbonLimit
	default:
		if l := config.CarbonLimit(cfg); l != nil {
			carbon = *l
		}
	}

	return gpu, region, budget, carbon
}

func renderScan(res *scan.Result, a scan.Analysis) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("COST SCAN  %s", res.Root)))
	fmt.Println()

	rows := [][]string{
		{"Files analyzed", fmt.Sprintf("%d", a.FilesAnalyzed)},
		{"ML files", fmt.Sprintf("%d", a.MLFilesFound)},
		{"Training files", fmt.Sprintf("%d", a.TrainingLoops)},
		{"Complexity score", fmt.Sprintf("%d", a.TotalComplexity)},
		{"---"},
		{"Projected on", fmt.Sprintf("%s in %s", a.GPU, a.Region)},
		{"Est. hours", cli.FormatHours(a.EstimatedHours)},
		{"Est. cost", gateValue(cli.FormatCost(a.EstimatedCost), a.BudgetLimit, a.EstimatedCost)},
		{"Est. energy", cli.FormatEnergy(a.EnergyKWh)},
		{"Est. carbon", gateValue(cli.FormatCarbon(a.EstimatedCarbon), a.CarbonLimit, a.EstimatedCarbon)},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if a.Passed {
		fmt.Printf("  %s\n", cli.Good("PASSED"))
	} else {
		fmt.Printf("  %s\n", cli.Bad("FAILED"))
	}

	if res.ReadErrors > 0 {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("%d files could not be read", res.ReadErrors)))
	}

	if len(a.Suggestions) > 0 {
		fmt.Println()
		for _, sg := range a.Suggestions {
			fmt.Printf("  [%s] %s\n", sg.Priority, sg.Title)
			fmt.Printf("        %s %s\n", sg.Description, cli.Muted("saves "+sg.Savings))
		}
	}
	fmt.Println()
}

// gateValue appends the limit to a metric when the gate is active.
func gateValue(formatted string, limit, value float64) string {
	if limit <= 0 {
		return formatted
	}
	if value <= limit {
		return fmt.Sprintf("%s %s", formatted, cli.Good(fmt.Sprintf("(limit %.2f)", limit)))
	}
	return fmt.Sprintf("%s %s", formatted, cli.Bad(fmt.Sprintf("(limit %.2f)", limit)))
}

func scanBudgetLabel(a scan.Analysis) string {
	if a.BudgetLimit > 0 && a.EstimatedCost > a.BudgetLimit {
		return cli.FormatCost(a.BudgetLimit)
	}
	return cli.FormatCarbon(a.CarbonLimit) + " carbon"
}
