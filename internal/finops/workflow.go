package finops

import "fmt"

// SimulateWorkflow estimates a parallel multi-agent workflow: every agent in
// the roster runs the full task independently with its own history, the
// per-agent totals are summed, and a coordination overhead equal to
// coordinationOverhead times that sum is added on top. CostPerTurn divides
// the grand total by the requested turn count.
func SimulateWorkflow(agents []AgentConfig, task TaskProfile, coordinationOverhead float64) (*WorkflowEstimate, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("empty agent roster: %w", ErrInvalidInput)
	}
	if coordinationOverhead < 0 {
		return nil, fmt.Errorf("negative coordination overhead %v: %w", coordinationOverhead, ErrInvalidInput)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	est := &WorkflowEstimate{
		Task:             task.Name,
		Turns:            task.Turns,
		AgentCount:       len(agents),
		OverheadFraction: coordinationOverhead,
	}

	for _, agent := range agents {
		run, err := SimulateAgent(agent, task)
		if err != nil {
			return nil, err
		}
		est.AgentRuns = append(est.AgentRuns, *run)
		est.Subtotal += run.TotalCost
	}

	est.OverheadAmount = est.Subtotal * coordinationOverhead
	est.TotalCost = est.Subtotal + est.OverheadAmount
	est.CostPerTurn = est.TotalCost / float64(task.Turns)
	return est, nil
}
