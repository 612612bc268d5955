package compute

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestEstimate_ClusterRun(t *testing.T) {
	run := TrainingRun{
		GPU:      Profiles["h100"],
		Count:    8,
		Duration: 12 * time.Hour,
		Region:   "us-west",
	}

	est := run.Estimate()

	if math.Abs(est.CostUSD-336.00) > 1e-9 {
		t.Errorf("cost = %.4f, want 336.00", est.CostUSD)
	}
	if math.Abs(est.EnergyKWh-67.2) > 1e-9 {
		t.Errorf("energy = %.4f kWh, want 67.2", est.EnergyKWh)
	}
	if math.Abs(est.CarbonKg-23.52) > 1e-9 {
		t.Errorf("carbon = %.4f kg, want 23.52", est.CarbonKg)
	}
	if est.Intensity != 350 {
		t.Errorf("intensity = %d, want 350", est.Intensity)
	}
	if math.Abs(est.Hours-12) > 1e-9 {
		t.Errorf("hours = %.4f, want 12", est.Hours)
	}
}

func TestEstimate_RateOverride(t *testing.T) {
	spot := 1.00
	run := TrainingRun{
		GPU:         Profiles["h100"],
		Count:       8,
		Duration:    12 * time.Hour,
		Region:      "us-west",
		CostPerHour: &spot,
	}

	est := run.Estimate()

	if math.Abs(est.CostUSD-96.00) > 1e-9 {
		t.Errorf("cost = %.4f, want 96.00", est.CostUSD)
	}
	// Energy only depends on the hardware, not the rate.
	if math.Abs(est.EnergyKWh-67.2) > 1e-9 {
		t.Errorf("energy = %.4f kWh, want 67.2", est.EnergyKWh)
	}
}

func TestEstimate_ZeroCountMeansOne(t *testing.T) {
	run := TrainingRun{
		GPU:      Profiles["h100"],
		Duration: 12 * time.Hour,
		Region:   "us-west",
	}

	est := run.Estimate()

	if est.Count != 1 {
		t.Fatalf("count = %d, want 1", est.Count)
	}
	if math.Abs(est.CostUSD-42.00) > 1e-9 {
		t.Errorf("cost = %.4f, want 42.00", est.CostUSD)
	}
	if math.Abs(est.EnergyKWh-8.4) > 1e-9 {
		t.Errorf("energy = %.4f kWh, want 8.4", est.EnergyKWh)
	}
}

func TestEstimate_CostPerStep(t *testing.T) {
	run := TrainingRun{
		GPU:      Profiles["h100"],
		Count:    8,
		Duration: 12 * time.Hour,
		Region:   "us-west",
		Steps:    1000,
	}

	est := run.Estimate()
	if math.Abs(est.CostPerStep-0.336) > 1e-9 {
		t.Errorf("cost per step = %.6f, want 0.336", est.CostPerStep)
	}

	run.Steps = 0
	if est := run.Estimate(); est.CostPerStep != 0 {
		t.Errorf("cost per step without steps = %.6f, want 0", est.CostPerStep)
	}
}

func TestTips_DirtyGridAndMaterialSpend(t *testing.T) {
	est := TrainingRun{
		GPU:      Profiles["h100"],
		Count:    8,
		Duration: 12 * time.Hour,
		Region:   "us-west",
	}.Estimate()

	tips := est.Tips()
	if len(tips) != 2 {
		t.Fatalf("tips = %d, want 2: %v", len(tips), tips)
	}
	if !strings.Contains(tips[0], "eu-north") || !strings.Contains(tips[0], "22.2") {
		t.Errorf("region tip = %q, want eu-north saving 22.2 kg", tips[0])
	}
	if !strings.Contains(tips[1], "Mixed precision") {
		t.Errorf("second tip = %q, want mixed precision", tips[1])
	}
}

func TestTips_CleanRegionSkipsRelocation(t *testing.T) {
	est := TrainingRun{
		GPU:      Profiles["h100"],
		Count:    8,
		Duration: 12 * time.Hour,
		Region:   "eu-north",
	}.Estimate()

	if math.Abs(est.CarbonKg-1.344) > 1e-9 {
		t.Fatalf("carbon = %.4f kg, want 1.344", est.CarbonKg)
	}

	tips := est.Tips()
	if len(tips) != 1 {
		t.Fatalf("tips = %d, want 1: %v", len(tips), tips)
	}
	if !strings.Contains(tips[0], "Mixed precision") {
		t.Errorf("tip = %q, want mixed precision", tips[0])
	}
}

func TestTips_TinyRunStaysQuiet(t *testing.T) {
	est := TrainingRun{
		GPU:      Profiles["t4"],
		Count:    1,
		Duration: 10 * time.Minute,
		Region:   "us-west",
	}.Estimate()

	if tips := est.Tips(); len(tips) != 0 {
		t.Fatalf("tips = %v, want none", tips)
	}
}
