package finops

import (
	"errors"
	"math"
	"testing"
)

func proAgent() AgentConfig {
	return AgentConfig{
		Name: "architect",
		Role: "system design",
		Pricing: ModelPricing{
			Name:          "gemini-2.0-pro",
			InputPerMTok:  3.50,
			OutputPerMTok: 10.50,
			ContextWindow: 2_000_000,
		},
		SystemPromptTokens: 2000,
	}
}

func flashAgent(name string) AgentConfig {
	return AgentConfig{
		Name: name,
		Pricing: ModelPricing{
			Name:          "gemini-2.0-flash",
			InputPerMTok:  0.35,
			OutputPerMTok: 1.05,
			ContextWindow: 1_000_000,
		},
		SystemPromptTokens: 2000,
	}
}

func refactorTask(turns int) TaskProfile {
	return TaskProfile{
		Name:                   "payment-gateway refactor",
		RepoContextTokens:      150_000,
		Turns:                  turns,
		AvgOutputTokensPerTurn: 1000,
	}
}

func TestSimulateAgent_SingleTurnWorkedExample(t *testing.T) {
	res, err := SimulateAgent(proAgent(), refactorTask(1))
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	if res.TurnsExecuted != 1 {
		t.Fatalf("TurnsExecuted = %d, want 1", res.TurnsExecuted)
	}
	if got := res.Trace[0].InputTokens; got != 152_000 {
		t.Fatalf("turn 1 InputTokens = %d, want 152000", got)
	}

	// 152000/1e6*3.50 + 1000/1e6*10.50
	want := 0.5425
	if math.Abs(res.Trace[0].Cost-want) > 1e-9 {
		t.Fatalf("turn 1 Cost = %.6f, want %.4f", res.Trace[0].Cost, want)
	}
	if math.Abs(res.TotalCost-want) > 1e-9 {
		t.Fatalf("TotalCost = %.6f, want %.4f", res.TotalCost, want)
	}
	if res.Truncated {
		t.Fatal("single-turn run unexpectedly truncated")
	}
}

func TestSimulateAgent_MultiTurnTotals(t *testing.T) {
	res, err := SimulateAgent(proAgent(), refactorTask(25))
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	if res.TurnsExecuted != 25 {
		t.Fatalf("TurnsExecuted = %d, want 25", res.TurnsExecuted)
	}

	// Turn t input = 152000 + (t-1)*1050; summed over 25 turns = 4_115_000.
	if res.TotalInputTokens != 4_115_000 {
		t.Fatalf("TotalInputTokens = %d, want 4115000", res.TotalInputTokens)
	}
	if res.TotalOutputTokens != 25_000 {
		t.Fatalf("TotalOutputTokens = %d, want 25000", res.TotalOutputTokens)
	}

	want := 4_115_000.0/1e6*3.50 + 25_000.0/1e6*10.50
	if math.Abs(res.TotalCost-want) > 1e-9 {
		t.Fatalf("TotalCost = %.6f, want %.6f", res.TotalCost, want)
	}
}

func TestSimulateAgent_HistoryRecurrence(t *testing.T) {
	task := refactorTask(10)
	res, err := SimulateAgent(proAgent(), task)
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	step := task.AvgOutputTokensPerTurn + AckOverheadTokens
	for i := 1; i < len(res.Trace); i++ {
		got := res.Trace[i].InputTokens - res.Trace[i-1].InputTokens
		if got != step {
			t.Fatalf("input growth turn %d = %d, want %d", res.Trace[i].Turn, got, step)
		}
	}
}

func TestSimulateAgent_CumulativeCostMonotonic(t *testing.T) {
	res, err := SimulateAgent(proAgent(), refactorTask(40))
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	prev := 0.0
	for _, tr := range res.Trace {
		if tr.CumulativeCost < prev {
			t.Fatalf("cumulative cost decreased at turn %d: %.6f < %.6f", tr.Turn, tr.CumulativeCost, prev)
		}
		prev = tr.CumulativeCost
	}
	if math.Abs(prev-res.TotalCost) > 1e-9 {
		t.Fatalf("final cumulative = %.6f, want TotalCost %.6f", prev, res.TotalCost)
	}
}

func TestSimulateAgent_TruncatesMidRun(t *testing.T) {
	agent := proAgent()
	// First turn input is 152000; each later turn grows by 1050. A window of
	// 155000 admits turns 1-3 (154100 max) and rejects turn 4 (155150).
	agent.Pricing.ContextWindow = 155_000

	res, err := SimulateAgent(agent, refactorTask(25))
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	if !res.Truncated {
		t.Fatal("expected truncated run")
	}
	if res.TurnsExecuted != 3 {
		t.Fatalf("TurnsExecuted = %d, want 3", res.TurnsExecuted)
	}
	if len(res.Trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(res.Trace))
	}

	last := res.Trace[len(res.Trace)-1]
	nextInput := last.InputTokens + refactorTask(25).AvgOutputTokensPerTurn + AckOverheadTokens
	if nextInput <= agent.Pricing.ContextWindow {
		t.Fatalf("next input %d does not exceed window %d", nextInput, agent.Pricing.ContextWindow)
	}

	// Totals cover executed turns only.
	var sum float64
	var inputs int64
	for _, tr := range res.Trace {
		sum += tr.Cost
		inputs += tr.InputTokens
	}
	if math.Abs(sum-res.TotalCost) > 1e-9 {
		t.Fatalf("TotalCost = %.6f, want trace sum %.6f", res.TotalCost, sum)
	}
	if inputs != res.TotalInputTokens {
		t.Fatalf("TotalInputTokens = %d, want %d", res.TotalInputTokens, inputs)
	}
}

func TestSimulateAgent_FirstTurnOverflowIsNotAnError(t *testing.T) {
	agent := proAgent()
	agent.Pricing.ContextWindow = 1000
	agent.SystemPromptTokens = 500

	task := TaskProfile{Name: "tiny-window", RepoContextTokens: 1500, Turns: 5, AvgOutputTokensPerTurn: 100}

	res, err := SimulateAgent(agent, task)
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}
	if res.TurnsExecuted != 0 {
		t.Fatalf("TurnsExecuted = %d, want 0", res.TurnsExecuted)
	}
	if res.TotalCost != 0 {
		t.Fatalf("TotalCost = %.6f, want 0", res.TotalCost)
	}
	if !res.Truncated {
		t.Fatal("first-turn overflow should mark the result truncated")
	}
	if len(res.Trace) != 0 {
		t.Fatalf("trace length = %d, want 0", len(res.Trace))
	}
}

func TestSimulateAgent_InvalidInput(t *testing.T) {
	valid := proAgent()

	tests := []struct {
		name  string
		agent AgentConfig
		task  TaskProfile
	}{
		{"zero turns", valid, TaskProfile{Turns: 0}},
		{"negative turns", valid, TaskProfile{Turns: -3}},
		{"negative repo context", valid, TaskProfile{Turns: 5, RepoContextTokens: -1}},
		{"negative output per turn", valid, TaskProfile{Turns: 5, AvgOutputTokensPerTurn: -10}},
		{
			"negative system prompt",
			AgentConfig{Name: "bad", Pricing: valid.Pricing, SystemPromptTokens: -1},
			refactorTask(5),
		},
		{
			"negative input price",
			AgentConfig{Name: "bad", Pricing: ModelPricing{Name: "m", InputPerMTok: -1, ContextWindow: 100}},
			refactorTask(5),
		},
		{
			"zero context window",
			AgentConfig{Name: "bad", Pricing: ModelPricing{Name: "m", InputPerMTok: 1, OutputPerMTok: 1}},
			refactorTask(5),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SimulateAgent(tc.agent, tc.task)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSimulate_ChargesFirstAgentOnly(t *testing.T) {
	roster := []AgentConfig{proAgent(), flashAgent("worker")}
	task := refactorTask(10)

	res, err := Simulate(roster, task)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	solo, err := SimulateAgent(roster[0], task)
	if err != nil {
		t.Fatalf("SimulateAgent: %v", err)
	}

	if res.Model != "gemini-2.0-pro" {
		t.Fatalf("Model = %q, want gemini-2.0-pro", res.Model)
	}
	if math.Abs(res.TotalCost-solo.TotalCost) > 1e-9 {
		t.Fatalf("roster cost = %.6f, want first-agent cost %.6f", res.TotalCost, solo.TotalCost)
	}
}

func TestSimulate_ValidatesWholeRoster(t *testing.T) {
	bad := flashAgent("worker")
	bad.SystemPromptTokens = -5

	_, err := Simulate([]AgentConfig{proAgent(), bad}, refactorTask(5))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestSimulate_EmptyRoster(t *testing.T) {
	_, err := Simulate(nil, refactorTask(5))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}
