package daemon

import (
	"strings"
	"testing"

	"github.com/verdantlabs/ecoburn/internal/scan"
)

func TestGateMessage_Failed(t *testing.T) {
	msg := gateMessage(scan.Analysis{
		EstimatedCost:   175.0,
		EstimatedCarbon: 28.0,
		EstimatedHours:  50.0,
		BudgetLimit:     100.0,
		CarbonLimit:     10.0,
		TrainingLoops:   10,
		TotalComplexity: 200,
		GPU:             "h100",
		Region:          "us-east",
		Passed:          false,
	})

	for _, want := range []string{
		"FAILED",
		"$175.00",
		"limit $100.00",
		"28.00 kg CO₂e",
		"limit 10.00 kg",
		"h100",
		"us-east",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("gate message missing %q:\n%s", want, msg)
		}
	}
}

func TestGateMessage_PassedUnlimited(t *testing.T) {
	msg := gateMessage(scan.Analysis{
		EstimatedCost:   3.5,
		EstimatedCarbon: 0.28,
		EstimatedHours:  1.0,
		GPU:             "t4",
		Region:          "eu-north",
		Passed:          true,
	})

	if !strings.Contains(msg, "PASSED") {
		t.Fatalf("gate message missing verdict:\n%s", msg)
	}
	if strings.Contains(msg, "limit") {
		t.Fatalf("unlimited gates should not mention limits:\n%s", msg)
	}
}

func TestGateChange_NilNotifier(t *testing.T) {
	var n *Notifier
	if err := n.GateChange(scan.Analysis{Passed: false}); err != nil {
		t.Fatalf("nil notifier returned error: %v", err)
	}
}

func TestNewNotifier_EmptyToken(t *testing.T) {
	n, err := NewNotifier("", 0)
	if err != nil {
		t.Fatalf("empty token returned error: %v", err)
	}
	if n != nil {
		t.Fatal("empty token should disable the notifier")
	}
}
