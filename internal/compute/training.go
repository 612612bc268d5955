package compute

import (
	"fmt"
	"time"
)

// TrainingRun describes a (planned or measured) training job.
type TrainingRun struct {
	GPU      GPUProfile
	Count    int
	Duration time.Duration
	Region   string

	// CostPerHour overrides the profile's on-demand rate when set.
	CostPerHour *float64
	// Steps enables cost-per-step reporting when positive.
	Steps int64
}

// TrainingEstimate holds the computed cost, energy, and carbon numbers for a
// run.
type TrainingEstimate struct {
	GPU       GPUProfile
	Count     int
	Region    string
	Intensity int

	Hours     float64
	CostUSD   float64
	EnergyKWh float64
	CarbonKg  float64

	Steps       int64
	CostPerStep float64
}

// Estimate computes the run's cost, energy draw, and carbon footprint.
// Cost is rate x hours x GPU count; energy is TDP-derived; carbon applies
// the region's grid intensity.
func (r TrainingRun) Estimate() TrainingEstimate {
	count := r.Count
	if count < 1 {
		count = 1
	}

	rate := r.GPU.CostPerHour
	if r.CostPerHour != nil {
		rate = *r.CostPerHour
	}

	hours := r.Duration.Hours()
	energy := float64(r.GPU.TDPWatts) / 1000 * float64(count) * hours
	intensity := IntensityFor(r.Region)

	est := TrainingEstimate{
		GPU:       r.GPU,
		Count:     count,
		Region:    r.Region,
		Intensity: intensity,
		Hours:     hours,
		CostUSD:   rate * hours * float64(count),
		EnergyKWh: energy,
		CarbonKg:  energy * float64(intensity) / 1000,
		Steps:     r.Steps,
	}
	if r.Steps > 0 {
		est.CostPerStep = est.CostUSD / float64(r.Steps)
	}
	return est
}

// Tips returns post-run recommendations: the carbon delta of moving to the
// cleanest region, and mixed precision once the spend is material.
func (e TrainingEstimate) Tips() []string {
	var tips []string

	if IntensityFor(e.Region) != IntensityFor(CleanestRegion) {
		clean := e.EnergyKWh * float64(IntensityFor(CleanestRegion)) / 1000
		if saved := e.CarbonKg - clean; saved > 0.05 {
			tips = append(tips, fmt.Sprintf(
				"Training in %s (Sweden) would save %.1f kg CO₂e", CleanestRegion, saved))
		}
	}

	if e.CostUSD > 10 {
		tips = append(tips, "Mixed precision (FP16/BF16) typically gives a 30-50% speedup")
	}

	return tips
}
