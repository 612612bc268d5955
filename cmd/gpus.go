package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/compute"
)

var flagGPUDetect bool

var gpusCmd = &cobra.Command{
	Use:   "gpus",
	Short: "GPU profiles and region carbon intensities",
	RunE:  runGPUs,
}

func init() {
	gpusCmd.Flags().BoolVar(&flagGPUDetect, "detect", false, "Detect installed GPUs via nvidia-smi")
	rootCmd.AddCommand(gpusCmd)
}

type gpuJSON struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	TFLOPS      float64 `json:"tflops"`
	TDPWatts    int     `json:"tdp_watts"`
	CostPerHour float64 `json:"cost_per_hour_usd"`
}

type regionJSON struct {
	Name      string `json:"name"`
	Intensity int    `json:"intensity_gco2_kwh"`
}

func runGPUs(_ *cobra.Command, _ []string) error {
	profiles := compute.SortedProfiles()
	regions := compute.Regions()

	var detected *compute.GPUProfile
	detectedCount := 0
	if flagGPUDetect {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gpu, count, err := compute.DetectGPU(ctx)
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  detection failed: %v\n", err)
			}
		} else {
			detected = &gpu
			detectedCount = count
		}
	}

	if flagJSON {
		gpus := make([]gpuJSON, 0, len(profiles))
		for _, p := range profiles {
			gpus = append(gpus, gpuJSON{
				Key: p.Key, Name: p.Name, TFLOPS: p.TFLOPS,
				TDPWatts: p.TDPWatts, CostPerHour: p.CostPerHour,
			})
		}
		regionList := make([]regionJSON, 0, len(regions))
		for _, r := range regions {
			regionList = append(regionList, regionJSON{Name: r, Intensity: compute.IntensityFor(r)})
		}
		out := map[string]any{"gpus": gpus, "regions": regionList}
		if detected != nil {
			out["detected"] = map[string]any{"key": detected.Key, "count": detectedCount}
		}
		return printJSON(out)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("GPU PROFILES"))
	fmt.Println()

	if detected != nil {
		fmt.Printf("  %s\n\n", cli.Good(fmt.Sprintf(
			"Detected %d× %s (profile %s)", detectedCount, detected.Name, detected.Key)))
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		mark := ""
		if detected != nil && p.Key == detected.Key {
			mark = " *"
		}
		rows = append(rows, []string{
			p.Key + mark,
			p.Name,
			fmt.Sprintf("%.0f", p.TFLOPS),
			fmt.Sprintf("%d W", p.TDPWatts),
			fmt.Sprintf("$%.2f/h", p.CostPerHour),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Key", "Name", "FP16 TFLOPS", "TDP", "On-demand"},
		Rows:    rows,
	}))

	regionRows := make([][]string, 0, len(regions))
	for i, r := range regions {
		label := fmt.Sprintf("%d g/kWh", compute.IntensityFor(r))
		if i == 0 {
			label = cli.Good(label + "  cleanest")
		}
		regionRows = append(regionRows, []string{r, label})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Region Carbon Intensity",
		Headers: []string{"Region", "Grid CO₂"},
		Rows:    regionRows,
	}))

	return nil
}
