// Package scenario loads multi-agent workflow definitions from TOML files
// and provides the built-in demo roster.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
)

// Scenario pairs a task profile with the agent roster that works it.
type Scenario struct {
	Name                 string
	Task                 finops.TaskProfile
	Agents               []finops.AgentConfig
	CoordinationOverhead float64
}

// fileScenario mirrors the TOML layout of a scenario file.
type fileScenario struct {
	Name     string       `toml:"name"`
	Task     fileTask     `toml:"task"`
	Agents   []fileAgent  `toml:"agents"`
	Workflow fileWorkflow `toml:"workflow"`
}

type fileTask struct {
	RepoContextTokens      int64 `toml:"repo_context_tokens"`
	Turns                  int   `toml:"turns"`
	AvgOutputTokensPerTurn int64 `toml:"avg_output_tokens_per_turn"`
}

type fileAgent struct {
	Name               string `toml:"name"`
	Role               string `toml:"role"`
	Model              string `toml:"model"`
	SystemPromptTokens int64  `toml:"system_prompt_tokens"`
}

type fileWorkflow struct {
	CoordinationOverhead *float64 `toml:"coordination_overhead"`
}

// Load parses a scenario file and resolves each agent's model against the
// pricing catalog. Model names are normalized first, so provider prefixes
// and date suffixes are accepted.
func Load(path string, catalog map[string]finops.ModelPricing) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var fs fileScenario
	if err := toml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	sc := &Scenario{
		Name: fs.Name,
		Task: finops.TaskProfile{
			Name:                   fs.Name,
			RepoContextTokens:      fs.Task.RepoContextTokens,
			Turns:                  fs.Task.Turns,
			AvgOutputTokensPerTurn: fs.Task.AvgOutputTokensPerTurn,
		},
		CoordinationOverhead: finops.DefaultCoordinationOverhead,
	}
	if fs.Workflow.CoordinationOverhead != nil {
		sc.CoordinationOverhead = *fs.Workflow.CoordinationOverhead
	}

	if err := sc.Task.Validate(); err != nil {
		return nil, err
	}
	if len(fs.Agents) == 0 {
		return nil, fmt.Errorf("scenario %q has no agents: %w", fs.Name, finops.ErrInvalidInput)
	}

	for _, fa := range fs.Agents {
		pricing, ok := catalog[config.NormalizeModelName(fa.Model)]
		if !ok {
			return nil, fmt.Errorf("agent %q: unknown model %q (known: %s)",
				fa.Name, fa.Model, strings.Join(knownModels(catalog), ", "))
		}

		agent := finops.AgentConfig{
			Name:               fa.Name,
			Role:               fa.Role,
			Pricing:            pricing,
			SystemPromptTokens: fa.SystemPromptTokens,
		}
		if err := agent.Validate(); err != nil {
			return nil, err
		}
		sc.Agents = append(sc.Agents, agent)
	}

	return sc, nil
}

func knownModels(catalog map[string]finops.ModelPricing) []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Demo returns the built-in five-agent enterprise roster working a 25-turn
// refactor of a large repository. It exercises every simulator feature
// without needing a scenario file.
func Demo() *Scenario {
	pro := config.DefaultPricing["gemini-2.0-pro"]
	flash := config.DefaultPricing["gemini-2.0-flash"]

	agent := func(name, role string, pricing finops.ModelPricing) finops.AgentConfig {
		return finops.AgentConfig{
			Name:               name,
			Role:               role,
			Pricing:            pricing,
			SystemPromptTokens: 2000,
		}
	}

	return &Scenario{
		Name: "payment-gateway refactor",
		Task: finops.TaskProfile{
			Name:                   "payment-gateway refactor",
			RepoContextTokens:      150_000,
			Turns:                  25,
			AvgOutputTokensPerTurn: 1000,
		},
		Agents: []finops.AgentConfig{
			agent("architect", "system design", pro),
			agent("frontend", "UI implementation", flash),
			agent("backend", "API implementation", flash),
			agent("tester", "test authoring", flash),
			agent("reviewer", "code review", pro),
		},
		CoordinationOverhead: finops.DefaultCoordinationOverhead,
	}
}
