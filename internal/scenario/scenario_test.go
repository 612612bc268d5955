package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func defaultCatalog() map[string]finops.ModelPricing {
	return config.CatalogWith(config.PricingOverrides{})
}

func TestLoad(t *testing.T) {
	path := writeScenario(t, `
name = "payment-gateway refactor"

[task]
repo_context_tokens = 150000
turns = 25
avg_output_tokens_per_turn = 1000

[[agents]]
name = "architect"
role = "system design"
model = "gemini-2.0-pro"
system_prompt_tokens = 2000

[[agents]]
name = "tester"
role = "test authoring"
model = "google/Gemini-2.0-Flash"
system_prompt_tokens = 1500

[workflow]
coordination_overhead = 0.3
`)

	sc, err := Load(path, defaultCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sc.Name != "payment-gateway refactor" {
		t.Errorf("Name = %q", sc.Name)
	}
	if sc.Task.Turns != 25 || sc.Task.RepoContextTokens != 150000 {
		t.Errorf("Task = %+v", sc.Task)
	}
	if sc.CoordinationOverhead != 0.3 {
		t.Errorf("CoordinationOverhead = %v, want 0.3", sc.CoordinationOverhead)
	}
	if len(sc.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(sc.Agents))
	}

	if sc.Agents[0].Pricing.InputPerMTok != 3.50 {
		t.Errorf("architect input price = %v, want 3.50", sc.Agents[0].Pricing.InputPerMTok)
	}
	// Prefixed, mixed-case model names normalize before catalog lookup.
	if sc.Agents[1].Pricing.Name != "gemini-2.0-flash" {
		t.Errorf("tester model = %q, want gemini-2.0-flash", sc.Agents[1].Pricing.Name)
	}
	if sc.Agents[1].SystemPromptTokens != 1500 {
		t.Errorf("tester system prompt = %d, want 1500", sc.Agents[1].SystemPromptTokens)
	}
}

func TestLoad_DefaultOverhead(t *testing.T) {
	path := writeScenario(t, `
name = "minimal"

[task]
turns = 5

[[agents]]
name = "solo"
model = "gemini-2.0-flash"
`)

	sc, err := Load(path, defaultCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.CoordinationOverhead != finops.DefaultCoordinationOverhead {
		t.Errorf("CoordinationOverhead = %v, want default %v",
			sc.CoordinationOverhead, finops.DefaultCoordinationOverhead)
	}
}

func TestLoad_UnknownModel(t *testing.T) {
	path := writeScenario(t, `
[task]
turns = 5

[[agents]]
name = "solo"
model = "gpt-99-ultra"
`)

	_, err := Load(path, defaultCatalog())
	if err == nil {
		t.Fatal("expected unknown-model error")
	}
	if !strings.Contains(err.Error(), "gpt-99-ultra") || !strings.Contains(err.Error(), "solo") {
		t.Errorf("error = %v, want agent and model named", err)
	}
	if !strings.Contains(err.Error(), "gemini-2.0-flash") {
		t.Errorf("error = %v, want known models listed", err)
	}
}

func TestLoad_InvalidTask(t *testing.T) {
	path := writeScenario(t, `
[task]
turns = 0

[[agents]]
name = "solo"
model = "gemini-2.0-flash"
`)

	_, err := Load(path, defaultCatalog())
	if !errors.Is(err, finops.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestLoad_NoAgents(t *testing.T) {
	path := writeScenario(t, `
[task]
turns = 5
`)

	_, err := Load(path, defaultCatalog())
	if !errors.Is(err, finops.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeScenario(t, "turns = [not toml")

	if _, err := Load(path, defaultCatalog()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), defaultCatalog()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestDemo(t *testing.T) {
	sc := Demo()

	if len(sc.Agents) != 5 {
		t.Fatalf("agents = %d, want 5", len(sc.Agents))
	}
	if sc.Task.Turns != 25 || sc.Task.RepoContextTokens != 150_000 {
		t.Errorf("Task = %+v", sc.Task)
	}

	est, err := finops.SimulateWorkflow(sc.Agents, sc.Task, sc.CoordinationOverhead)
	if err != nil {
		t.Fatalf("demo roster does not simulate: %v", err)
	}
	if est.TotalCost <= 0 {
		t.Errorf("TotalCost = %v, want positive", est.TotalCost)
	}
	if est.AgentCount != 5 {
		t.Errorf("AgentCount = %d, want 5", est.AgentCount)
	}
}
