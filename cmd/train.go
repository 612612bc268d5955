package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
)

var (
	flagTrainGPU   string
	flagTrainCount int
	flagTrainHours float64
	flagTrainRate  float64
	flagTrainSteps int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Estimate a GPU training run's cost, energy, and carbon",
	RunE:  runTrain,
}

var trainExecCmd = &cobra.Command{
	Use:   "exec -- command [args...]",
	Short: "Run a command and report what the wall time burned",
	Long: "Wraps an arbitrary command (a training script, usually), times it, and\n" +
		"prints the cost/energy/carbon estimate for the measured duration.",
	Args: cobra.MinimumNArgs(1),
	RunE: runTrainExec,
}

func init() {
	trainCmd.PersistentFlags().StringVarP(&flagTrainGPU, "gpu", "g", "", "GPU profile key (default from config, see `ecoburn gpus`)")
	trainCmd.PersistentFlags().IntVarP(&flagTrainCount, "count", "c", 1, "Number of GPUs")
	trainCmd.PersistentFlags().Float64Var(&flagTrainRate, "cost-per-hour", -1, "Override $/GPU-hour (spot pricing etc.)")
	trainCmd.Flags().Float64Var(&flagTrainHours, "hours", 1, "Training duration in hours")
	trainCmd.Flags().Int64Var(&flagTrainSteps, "steps", 0, "Training steps, for cost-per-step reporting")

	trainCmd.AddCommand(trainExecCmd)
	rootCmd.AddCommand(trainCmd)
}

func runTrain(_ *cobra.Command, _ []string) error {
	run, err := trainingRunFromFlags(time.Duration(flagTrainHours * float64(time.Hour)))
	if err != nil {
		return err
	}

	est := run.Estimate()
	if flagJSON {
		return printJSON(trainingJSON(est))
	}

	renderTraining(est, 0)
	return nil
}

func runTrainExec(_ *cobra.Command, args []string) error {
	run, err := trainingRunFromFlags(0)
	if err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Running: %v\n", args)
	}

	start := time.Now()
	child := exec.Command(args[0], args[1:]...) //nolint:gosec // intentionally wraps a user-supplied command
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Stdin = os.Stdin
	runErr := child.Run()
	elapsed := time.Since(start)

	run.Duration = elapsed
	est := run.Estimate()

	if flagJSON {
		if err := printJSON(trainingJSON(est)); err != nil {
			return err
		}
	} else {
		renderTraining(est, elapsed)
	}

	if runErr != nil {
		return fmt.Errorf("command failed: %w", runErr)
	}
	return nil
}

func trainingRunFromFlags(duration time.Duration) (compute.TrainingRun, error) {
	cfg := loadConfigOrDefault()

	key := flagTrainGPU
	if key == "" {
		key = config.GPUKey(cfg)
	}
	gpu, ok := compute.LookupGPU(key)
	if !ok {
		return compute.TrainingRun{}, fmt.Errorf("unknown GPU %q (see `ecoburn gpus`)", key)
	}

	rate := config.CostPerHour(cfg)
	if flagTrainRate >= 0 {
		rate = &flagTrainRate
	}

	return compute.TrainingRun{
		GPU:         gpu,
		Count:       flagTrainCount,
		Duration:    duration,
		Region:      activeRegion(cfg),
		CostPerHour: rate,
		Steps:       flagTrainSteps,
	}, nil
}

func renderTraining(est compute.TrainingEstimate, measured time.Duration) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("TRAINING ESTIMATE"))
	fmt.Println()

	hardware := est.GPU.Name
	if est.Count > 1 {
		hardware = fmt.Sprintf("%d× %s", est.Count, est.GPU.Name)
	}

	rows := [][]string{
		{"Hardware", hardware},
		{"Region", fmt.Sprintf("%s (%d g CO₂/kWh)", est.Region, est.Intensity)},
		{"Duration", cli.FormatHours(est.Hours)},
		{"---"},
		{"Cost", cli.FormatCost(est.CostUSD)},
		{"Energy", cli.FormatEnergy(est.EnergyKWh)},
		{"Carbon", cli.FormatCarbon(est.CarbonKg)},
	}
	if est.Steps > 0 {
		rows = append(rows, []string{"Cost per step", cli.FormatCostPrecise(est.CostPerStep)})
	}
	if measured > 0 {
		rows = append(rows, []string{"Measured wall time", measured.Round(time.Second).String()})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	tips := est.Tips()
	for _, tip := range tips {
		fmt.Printf("  %s\n", cli.Muted("tip: "+tip))
	}
	if len(tips) > 0 {
		fmt.Println()
	}
}

type trainingJSONOut struct {
	GPU         string  `json:"gpu"`
	Count       int     `json:"count"`
	Region      string  `json:"region"`
	Intensity   int     `json:"intensity_gco2_kwh"`
	Hours       float64 `json:"hours"`
	CostUSD     float64 `json:"cost_usd"`
	EnergyKWh   float64 `json:"energy_kwh"`
	CarbonKg    float64 `json:"carbon_kg"`
	Steps       int64   `json:"steps,omitempty"`
	CostPerStep float64 `json:"cost_per_step_usd,omitempty"`
	Tips        []string `json:"tips"`
}

func trainingJSON(est compute.TrainingEstimate) trainingJSONOut {
	tips := est.Tips()
	if tips == nil {
		tips = []string{}
	}
	return trainingJSONOut{
		GPU:         est.GPU.Key,
		Count:       est.Count,
		Region:      est.Region,
		Intensity:   est.Intensity,
		Hours:       est.Hours,
		CostUSD:     est.CostUSD,
		EnergyKWh:   est.EnergyKWh,
		CarbonKg:    est.CarbonKg,
		Steps:       est.Steps,
		CostPerStep: est.CostPerStep,
		Tips:        tips,
	}
}
