package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, PolicyFile), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadPolicy(t *testing.T) {
	root := writePolicy(t, strings.Join([]string{
		"budget_limit: 250.5",
		"carbon_limit: 10",
		"gpu: h100",
		"region: eu-north",
		"include:",
		"  - src/**/*.py",
		"exclude:",
		"  - src/legacy/**",
	}, "\n"))

	p, err := LoadPolicy(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("policy = nil, want parsed policy")
	}

	if p.BudgetLimit == nil || *p.BudgetLimit != 250.5 {
		t.Errorf("BudgetLimit = %v, want 250.5", p.BudgetLimit)
	}
	if p.CarbonLimit == nil || *p.CarbonLimit != 10 {
		t.Errorf("CarbonLimit = %v, want 10", p.CarbonLimit)
	}
	if p.GPU != "h100" || p.Region != "eu-north" {
		t.Errorf("GPU/Region = %q/%q, want h100/eu-north", p.GPU, p.Region)
	}
	if len(p.Include) != 1 || p.Include[0] != "src/**/*.py" {
		t.Errorf("Include = %v", p.Include)
	}
	if len(p.Exclude) != 1 || p.Exclude[0] != "src/legacy/**" {
		t.Errorf("Exclude = %v", p.Exclude)
	}
}

func TestLoadPolicy_PartialFileLeavesLimitsUnset(t *testing.T) {
	root := writePolicy(t, "gpu: t4\n")

	p, err := LoadPolicy(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BudgetLimit != nil || p.CarbonLimit != nil {
		t.Errorf("limits = %v/%v, want both nil", p.BudgetLimit, p.CarbonLimit)
	}
	if p.GPU != "t4" {
		t.Errorf("GPU = %q, want t4", p.GPU)
	}
}

func TestLoadPolicy_Missing(t *testing.T) {
	p, err := LoadPolicy(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("policy = %+v, want nil for missing file", p)
	}
}

func TestLoadPolicy_Malformed(t *testing.T) {
	root := writePolicy(t, "budget_limit: [oops\n")

	if _, err := LoadPolicy(root); err == nil {
		t.Fatal("expected parse error")
	}
}
