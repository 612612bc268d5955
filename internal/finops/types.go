// Package finops implements the deterministic token-cost simulation engine
// for multi-agent LLM workflows: per-turn context ballooning, window
// truncation, parallel-roster aggregation, and optimization suggestions.
package finops

import (
	"errors"
	"fmt"
)

// AckOverheadTokens is the fixed per-turn acknowledgment overhead folded into
// the conversation history after each executed turn.
const AckOverheadTokens = 50

// DefaultCoordinationOverhead is the fraction of the per-agent cost sum
// charged for cross-agent context sharing in a parallel workflow.
const DefaultCoordinationOverhead = 0.2

// ErrInvalidInput marks simulation inputs that fail validation (non-positive
// turn counts, negative token counts, negative prices). Callers test with
// errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ModelPricing holds per-million-token prices and the context window for a
// model. Immutable reference data resolved from the pricing catalog.
type ModelPricing struct {
	Name          string
	InputPerMTok  float64
	OutputPerMTok float64
	ContextWindow int64
}

// Validate reports whether the pricing is usable for simulation.
func (p ModelPricing) Validate() error {
	if p.InputPerMTok < 0 || p.OutputPerMTok < 0 {
		return fmt.Errorf("model %q: negative price: %w", p.Name, ErrInvalidInput)
	}
	if p.ContextWindow <= 0 {
		return fmt.Errorf("model %q: context window must be positive: %w", p.Name, ErrInvalidInput)
	}
	return nil
}

// AgentConfig describes one agent in a roster: its pricing model and the
// fixed system-prompt overhead it pays every turn. Immutable per simulation.
type AgentConfig struct {
	Name               string
	Role               string
	Pricing            ModelPricing
	SystemPromptTokens int64
}

// Validate reports whether the agent configuration is usable.
func (a AgentConfig) Validate() error {
	if a.SystemPromptTokens < 0 {
		return fmt.Errorf("agent %q: negative system prompt tokens: %w", a.Name, ErrInvalidInput)
	}
	if err := a.Pricing.Validate(); err != nil {
		return fmt.Errorf("agent %q: %w", a.Name, err)
	}
	return nil
}

// TaskProfile describes the workload being simulated.
type TaskProfile struct {
	Name                   string
	RepoContextTokens      int64
	Turns                  int
	AvgOutputTokensPerTurn int64
}

// Validate reports whether the task profile is usable.
func (t TaskProfile) Validate() error {
	if t.Turns <= 0 {
		return fmt.Errorf("task %q: turns must be positive, got %d: %w", t.Name, t.Turns, ErrInvalidInput)
	}
	if t.RepoContextTokens < 0 {
		return fmt.Errorf("task %q: negative repo context tokens: %w", t.Name, ErrInvalidInput)
	}
	if t.AvgOutputTokensPerTurn < 0 {
		return fmt.Errorf("task %q: negative output tokens per turn: %w", t.Name, ErrInvalidInput)
	}
	return nil
}

// TurnRecord captures one executed turn. Records are appended in turn order
// and never mutated afterwards.
type TurnRecord struct {
	Turn           int
	InputTokens    int64
	OutputTokens   int64
	Cost           float64
	CumulativeCost float64
}

// SimulationResult aggregates a single agent's run against a task.
// TurnsExecuted may be less than the requested turn count when the context
// window was exceeded and the run truncated.
type SimulationResult struct {
	Task  string
	Agent string
	Model string

	Trace []TurnRecord

	TotalCost         float64
	TotalInputTokens  int64
	TotalOutputTokens int64
	TurnsExecuted     int
	Truncated         bool
}

// WorkflowEstimate aggregates independent per-agent simulations of the same
// task plus a coordination overhead surcharge.
type WorkflowEstimate struct {
	Task       string
	Turns      int
	AgentRuns  []SimulationResult
	AgentCount int

	Subtotal         float64
	OverheadFraction float64
	OverheadAmount   float64
	TotalCost        float64
	CostPerTurn      float64
}

// SuggestionCategory enumerates the advisor's rule families.
type SuggestionCategory string

const (
	ModelDowngrade     SuggestionCategory = "MODEL_DOWNGRADE"
	ContextPruning     SuggestionCategory = "CONTEXT_PRUNING"
	AgentConsolidation SuggestionCategory = "AGENT_CONSOLIDATION"
)

// Suggestion is one cost-reduction recommendation with its estimated savings
// in USD. Savings from successive suggestions stack without overlapping.
type Suggestion struct {
	Category         SuggestionCategory
	Agent            string
	Recommendation   string
	EstimatedSavings float64
}
