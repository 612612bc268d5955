package finops

import "fmt"

// SimulateAgent runs the sequential turn loop for a single agent against a
// task. Each turn's input is the agent's system prompt plus the task's repo
// context plus the accumulated conversation history; the history grows by the
// average output per turn plus AckOverheadTokens after every executed turn.
//
// When a turn's input would exceed the model's context window the run stops
// before charging that turn and the result is marked truncated. Overflow on
// the very first turn yields a zero-turn, zero-cost result, not an error.
func SimulateAgent(agent AgentConfig, task TaskProfile) (*SimulationResult, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := agent.Validate(); err != nil {
		return nil, err
	}

	res := &SimulationResult{
		Task:  task.Name,
		Agent: agent.Name,
		Model: agent.Pricing.Name,
	}

	var history int64
	for turn := 1; turn <= task.Turns; turn++ {
		input := agent.SystemPromptTokens + task.RepoContextTokens + history
		if input > agent.Pricing.ContextWindow {
			res.Truncated = true
			break
		}

		turnCost := float64(input)*agent.Pricing.InputPerMTok/1_000_000 +
			float64(task.AvgOutputTokensPerTurn)*agent.Pricing.OutputPerMTok/1_000_000

		res.TotalCost += turnCost
		res.Trace = append(res.Trace, TurnRecord{
			Turn:           turn,
			InputTokens:    input,
			OutputTokens:   task.AvgOutputTokensPerTurn,
			Cost:           turnCost,
			CumulativeCost: res.TotalCost,
		})
		res.TotalInputTokens += input
		res.TotalOutputTokens += task.AvgOutputTokensPerTurn

		history += task.AvgOutputTokensPerTurn + AckOverheadTokens
	}

	res.TurnsExecuted = len(res.Trace)
	return res, nil
}

// Simulate runs the baseline sequential model against a roster: the first
// agent in the roster is the active agent charged every turn. The full roster
// is validated up front even though only the first agent is charged.
func Simulate(agents []AgentConfig, task TaskProfile) (*SimulationResult, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("empty agent roster: %w", ErrInvalidInput)
	}
	for _, a := range agents {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return SimulateAgent(agents[0], task)
}
