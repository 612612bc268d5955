package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdantlabs/ecoburn/internal/compute"
)

func sampleAnalysis(t *testing.T, budget, carbon float64) (*Result, Analysis) {
	t.Helper()
	res := &Result{
		Files: []FileAnalysis{
			{Path: "model/net.py", IsML: true, Patterns: []string{CategoryLargeModel}, Complexity: 10},
			{Path: "train.py", IsML: true, HasTraining: true, Patterns: []string{CategoryPyTorchTraining, CategoryPyTorchTraining}},
			{Path: "util.py"},
		},
		FilesScanned:    3,
		MLFiles:         2,
		TrainingFiles:   1,
		TotalComplexity: 10,
	}
	gpu, _ := compute.LookupGPU("a100-80gb")
	return res, Analyze(res, gpu, "us-east", budget, carbon)
}

func TestRenderMarkdown_Passed(t *testing.T) {
	res, a := sampleAnalysis(t, 500, 50)

	md := RenderMarkdown(res, a)

	for _, want := range []string{
		"Status: **PASSED**",
		"| Cost | $3.00 | $500.00 | ✅ |",
		"**Files Analyzed**: 3",
		"**Training Loops Detected**: 1",
		"| model/net.py | no | large_model | 10 |",
		"| train.py | yes | pytorch_training | 0 |",
		"Consider Mixed Precision Training",
	}, want {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "util.py") {
		t.Error("non-ML file listed in ML table")
	}
}

func TestRenderMarkdown_FailedAndUnlimited(t *testing.T) {
	res, a := sampleAnalysis(t, 1, 0)

	md := RenderMarkdown(res, a)

	if !strings.Contains(md, "Status: **FAILED**") {
		t.Error("report missing FAILED status")
	}
	// hours = 1.2, energy = 0.48 kWh, carbon = 0.48 x 400/1000 = 0.19 kg.
	if !strings.Contains(md, "| Carbon | 0.19 kg CO₂e | unlimited | ✅ |") {
		t.Errorf("report missing unlimited carbon row\n%s", md)
	}
}

func TestWriteGitHubOutput(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "output")
	if err := os.WriteFile(outPath, []byte("existing=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_OUTPUT", outPath)

	a := Analysis{EstimatedCost: 12.5, EstimatedCarbon: 0.51, Passed: true}
	if err := WriteGitHubOutput(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	for _, want := range []string{
		"existing=1\n",
		"estimated_cost=12.5\n",
		"estimated_carbon=0.51\n",
		"passed=true\n",
		"optimization_suggestions=[]\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q in:\n%s", want, got)
		}
	}
}

func TestWriteGitHubOutput_NoEnvIsNoop(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")

	if err := WriteGitHubOutput(Analysis{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
