package scan

import (
	"math"

	"github.com/verdantlabs/ecoburn/internal/compute"
)

// Analysis is the full outcome of a scan: projected cost and carbon, the
// budget gate verdict, and optimization suggestions. Field tags follow the
// CI output contract, so workflow steps can consume the JSON dump directly.
type Analysis struct {
	EstimatedCost   float64      `json:"estimated_cost"`
	EstimatedCarbon float64      `json:"estimated_carbon"`
	EstimatedHours  float64      `json:"estimated_hours"`
	EnergyKWh       float64      `json:"energy_kwh"`
	FilesAnalyzed   int          `json:"files_analyzed"`
	MLFilesFound    int          `json:"ml_files_found"`
	TrainingLoops   int          `json:"training_loops_detected"`
	TotalComplexity int          `json:"total_complexity"`
	GPU             string       `json:"gpu"`
	Region          string       `json:"region"`
	Intensity       int          `json:"carbon_intensity"`
	BudgetLimit     float64      `json:"budget_limit"`
	CarbonLimit     float64      `json:"carbon_limit"`
	Passed          bool         `json:"passed"`
	Suggestions     []Suggestion `json:"optimization_suggestions"`
}

// Analyze projects training hours, cost, energy, and carbon from a scan and
// applies the budget gates. A zero limit disables that gate.
//
// Hours scale with the number of training files and the accumulated
// complexity score: max(1, trainingFiles) x (1 + complexity/50). Hours,
// cost, and carbon round to 2 decimals before gating.
func Analyze(res *Result, gpu compute.GPUProfile, region string, budgetLimit, carbonLimit float64) Analysis {
	trainingFiles := res.TrainingFiles
	if trainingFiles < 1 {
		trainingFiles = 1
	}
	hours := float64(trainingFiles) * (1 + float64(res.TotalComplexity)/50)

	cost := hours * gpu.CostPerHour
	energy := hours * float64(gpu.TDPWatts) / 1000
	intensity := compute.IntensityFor(region)
	carbon := energy * float64(intensity) / 1000

	a := Analysis{
		EstimatedCost:   round2(cost),
		EstimatedCarbon: round2(carbon),
		EstimatedHours:  round2(hours),
		EnergyKWh:       round2(energy),
		FilesAnalyzed:   res.FilesScanned,
		MLFilesFound:    res.MLFiles,
		TrainingLoops:   res.TrainingFiles,
		TotalComplexity: res.TotalComplexity,
		GPU:             gpu.Key,
		Region:          region,
		Intensity:       intensity,
		BudgetLimit:     budgetLimit,
		CarbonLimit:     carbonLimit,
	}

	a.Passed = (budgetLimit <= 0 || a.EstimatedCost <= budgetLimit) &&
		(carbonLimit <= 0 || a.EstimatedCarbon <= carbonLimit)
	a.Suggestions = suggest(res, a)

	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
