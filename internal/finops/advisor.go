package finops

import (
	"fmt"
	"strings"
)

// Advisor holds the tuning knobs for optimization suggestions. Zero values
// disable the corresponding rules; use DefaultAdvisor for the standard
// configuration.
type Advisor struct {
	// HighTierMarker identifies expensive models by case-insensitive
	// substring match on the model name. Empty disables downgrades.
	HighTierMarker  string
	DowngradeTarget string
	DowngradeRatio  float64

	PruneThreshold float64
	PruneRatio     float64

	ConsolidateMinAgents int
	ConsolidateThreshold float64
	ConsolidateRatio     float64
}

// DefaultAdvisor returns the standard advisor configuration.
func DefaultAdvisor() Advisor {
	return Advisor{
		HighTierMarker:       "pro",
		DowngradeTarget:      "gemini-2.0-flash",
		DowngradeRatio:       0.85,
		PruneThreshold:       2.0,
		PruneRatio:           0.20,
		ConsolidateMinAgents: 3,
		ConsolidateThreshold: 1.0,
		ConsolidateRatio:     0.4,
	}
}

// Suggest proposes cost reductions for a workflow estimate. Rules are
// evaluated in a fixed order against a running remaining-cost tally so the
// returned savings stack without overlapping. A rule whose precondition does
// not hold is silently omitted.
func (adv Advisor) Suggest(est *WorkflowEstimate) []Suggestion {
	if est == nil {
		return nil
	}

	var suggestions []Suggestion
	remaining := est.TotalCost

	// Rule 1: downgrade the single most expensive high-tier agent.
	marker := strings.ToLower(adv.HighTierMarker)
	var top *SimulationResult
	if marker != "" {
		for i := range est.AgentRuns {
			run := &est.AgentRuns[i]
			if !strings.Contains(strings.ToLower(run.Model), marker) {
				continue
			}
			if top == nil || run.TotalCost > top.TotalCost {
				top = run
			}
		}
	}
	if top != nil {
		savings := top.TotalCost * adv.DowngradeRatio
		suggestions = append(suggestions, Suggestion{
			Category: ModelDowngrade,
			Agent:    top.Agent,
			Recommendation: fmt.Sprintf("Move agent %q from %s to %s for routine turns",
				top.Agent, top.Model, adv.DowngradeTarget),
			EstimatedSavings: savings,
		})
		remaining -= savings
	}

	// Rule 2: prune accumulated context once the remaining spend is material.
	if remaining > adv.PruneThreshold {
		savings := remaining * adv.PruneRatio
		suggestions = append(suggestions, Suggestion{
			Category:         ContextPruning,
			Recommendation:   "Keep a sliding window over recent turns instead of replaying the full history",
			EstimatedSavings: savings,
		})
		remaining -= savings
	}

	// Rule 3: consolidation savings come out of the original coordination
	// overhead, not the remaining tally.
	if est.AgentCount > adv.ConsolidateMinAgents && remaining > adv.ConsolidateThreshold {
		savings := est.OverheadAmount * adv.ConsolidateRatio
		suggestions = append(suggestions, Suggestion{
			Category:         AgentConsolidation,
			Recommendation:   "Merge overlapping agent roles to cut coordination overhead",
			EstimatedSavings: savings,
		})
	}

	return suggestions
}

// OptimizedTotal applies a suggestion list to an estimate's total.
func OptimizedTotal(est *WorkflowEstimate, suggestions []Suggestion) float64 {
	if est == nil {
		return 0
	}
	total := est.TotalCost
	for _, s := range suggestions {
		total -= s.EstimatedSavings
	}
	if total < 0 {
		total = 0
	}
	return total
}
