package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
)

// Wire types for the estimate endpoints. The simulator's own structs stay
// untagged; only the HTTP surface commits to a JSON shape.

type pricingEntry struct {
	Model         string  `json:"model"`
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
	ContextWindow int64   `json:"context_window"`
}

type gpuEntry struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	TFLOPS      float64 `json:"tflops"`
	TDPWatts    int     `json:"tdp_watts"`
	CostPerHour float64 `json:"cost_per_hour_usd"`
}

type regionEntry struct {
	Name      string `json:"name"`
	Intensity int    `json:"intensity_gco2_kwh"`
}

type simulateRequest struct {
	Task                   string `json:"task"`
	Model                  string `json:"model"`
	SystemPromptTokens     int64  `json:"system_prompt_tokens"`
	RepoContextTokens      int64  `json:"repo_context_tokens"`
	Turns                  int    `json:"turns"`
	AvgOutputTokensPerTurn int64  `json:"avg_output_tokens_per_turn"`
}

type turnWire struct {
	Turn           int     `json:"turn"`
	InputTokens    int64   `json:"input_tokens"`
	OutputTokens   int64   `json:"output_tokens"`
	Cost           float64 `json:"cost_usd"`
	CumulativeCost float64 `json:"cumulative_cost_usd"`
}

type simulationWire struct {
	Task              string     `json:"task"`
	Agent             string     `json:"agent"`
	Model             string     `json:"model"`
	Turns             []turnWire `json:"turns"`
	TotalCost         float64    `json:"total_cost_usd"`
	TotalInputTokens  int64      `json:"total_input_tokens"`
	TotalOutputTokens int64      `json:"total_output_tokens"`
	TurnsExecuted     int        `json:"turns_executed"`
	Truncated         bool       `json:"truncated"`
}

type workflowAgentRequest struct {
	Name               string `json:"name"`
	Role               string `json:"role"`
	Model              string `json:"model"`
	SystemPromptTokens int64  `json:"system_prompt_tokens"`
}

type workflowRequest struct {
	Task                 string                 `json:"task"`
	RepoContextTokens    int64                  `json:"repo_context_tokens"`
	Turns                int                    `json:"turns"`
	AvgOutputTokens      int64                  `json:"avg_output_tokens_per_turn"`
	Agents               []workflowAgentRequest `json:"agents"`
	CoordinationOverhead *float64               `json:"coordination_overhead"`
}

type agentRunWire struct {
	Agent             string  `json:"agent"`
	Model             string  `json:"model"`
	TotalCost         float64 `json:"total_cost_usd"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TurnsExecuted     int     `json:"turns_executed"`
	Truncated         bool    `json:"truncated"`
}

type suggestionWire struct {
	Category         string  `json:"category"`
	Agent            string  `json:"agent,omitempty"`
	Recommendation   string  `json:"recommendation"`
	EstimatedSavings float64 `json:"estimated_savings_usd"`
}

type workflowWire struct {
	Task             string           `json:"task"`
	Turns            int              `json:"turns"`
	AgentCount       int              `json:"agent_count"`
	Agents           []agentRunWire   `json:"agents"`
	Subtotal         float64          `json:"subtotal_usd"`
	OverheadFraction float64          `json:"overhead_fraction"`
	OverheadAmount   float64          `json:"overhead_usd"`
	TotalCost        float64          `json:"total_cost_usd"`
	CostPerTurn      float64          `json:"cost_per_turn_usd"`
	Suggestions      []suggestionWire `json:"suggestions"`
	OptimizedTotal   float64          `json:"optimized_total_usd"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handlePricing(w http.ResponseWriter, _ *http.Request) {
	catalog := config.SortedCatalog(s.cfg.Catalog)
	entries := make([]pricingEntry, 0, len(catalog))
	for _, p := range catalog {
		entries = append(entries, pricingEntry{
			Model:         p.Name,
			InputPerMTok:  p.InputPerMTok,
			OutputPerMTok: p.OutputPerMTok,
			ContextWindow: p.ContextWindow,
		})
	}
	writeJSON(w, entries)
}

func (s *Service) handleGPUs(w http.ResponseWriter, _ *http.Request) {
	profiles := compute.SortedProfiles()
	gpus := make([]gpuEntry, 0, len(profiles))
	for _, p := range profiles {
		gpus = append(gpus, gpuEntry{
			Key:         p.Key,
			Name:        p.Name,
			TFLOPS:      p.TFLOPS,
			TDPWatts:    p.TDPWatts,
			CostPerHour: p.CostPerHour,
		})
	}

	regions := compute.Regions()
	regionEntries := make([]regionEntry, 0, len(regions))
	for _, r := range regions {
		regionEntries = append(regionEntries, regionEntry{Name: r, Intensity: compute.IntensityFor(r)})
	}

	writeJSON(w, map[string]any{
		"gpus":    gpus,
		"regions": regionEntries,
	})
}

func (s *Service) handleScan(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastScan
	s.mu.RUnlock()

	if last == nil {
		httpError(w, http.StatusNotFound, "no scan available")
		return
	}
	writeJSON(w, last)
}

func (s *Service) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}

	pricing, ok := s.cfg.Catalog[config.NormalizeModelName(req.Model)]
	if !ok {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("unknown model %q", req.Model))
		return
	}

	agent := finops.AgentConfig{
		Name:               "agent",
		Pricing:            pricing,
		SystemPromptTokens: req.SystemPromptTokens,
	}
	task := finops.TaskProfile{
		Name:                   req.Task,
		RepoContextTokens:      req.RepoContextTokens,
		Turns:                  req.Turns,
		AvgOutputTokensPerTurn: req.AvgOutputTokensPerTurn,
	}

	res, err := finops.SimulateAgent(agent, task)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, finops.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		httpError(w, status, err.Error())
		return
	}

	writeJSON(w, simulationToWire(res))
}

func (s *Service) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}

	agents := make([]finops.AgentConfig, 0, len(req.Agents))
	for _, a := range req.Agents {
		pricing, ok := s.cfg.Catalog[config.NormalizeModelName(a.Model)]
		if !ok {
			httpError(w, http.StatusBadRequest, fmt.Sprintf("agent %q: unknown model %q", a.Name, a.Model))
			return
		}
		agents = append(agents, finops.AgentConfig{
			Name:               a.Name,
			Role:               a.Role,
			Pricing:            pricing,
			SystemPromptTokens: a.SystemPromptTokens,
		})
	}

	task := finops.TaskProfile{
		Name:                   req.Task,
		RepoContextTokens:      req.RepoContextTokens,
		Turns:                  req.Turns,
		AvgOutputTokensPerTurn: req.AvgOutputTokens,
	}
	overhead := finops.DefaultCoordinationOverhead
	if req.CoordinationOverhead != nil {
		overhead = *req.CoordinationOverhead
	}

	est, err := finops.SimulateWorkflow(agents, task, overhead)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, finops.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		httpError(w, status, err.Error())
		return
	}

	suggestions := s.cfg.Advisor.Suggest(est)
	writeJSON(w, workflowToWire(est, suggestions, finops.OptimizedTotal(est, suggestions)))
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func simulationToWire(res *finops.SimulationResult) simulationWire {
	turns := make([]turnWire, len(res.Trace))
	for i, tr := range res.Trace {
		turns[i] = turnWire{
			Turn:           tr.Turn,
			InputTokens:    tr.InputTokens,
			OutputTokens:   tr.OutputTokens,
			Cost:           tr.Cost,
			CumulativeCost: tr.CumulativeCost,
		}
	}
	return simulationWire{
		Task:              res.Task,
		Agent:             res.Agent,
		Model:             res.Model,
		Turns:             turns,
		TotalCost:         res.TotalCost,
		TotalInputTokens:  res.TotalInputTokens,
		TotalOutputTokens: res.TotalOutputTokens,
		TurnsExecuted:     res.TurnsExecuted,
		Truncated:         res.Truncated,
	}
}

func workflowToWire(est *finops.WorkflowEstimate, suggestions []finops.Suggestion, optimized float64) workflowWire {
	agents := make([]agentRunWire, len(est.AgentRuns))
	for i, run := range est.AgentRuns {
		agents[i] = agentRunWire{
			Agent:             run.Agent,
			Model:             run.Model,
			TotalCost:         run.TotalCost,
			TotalInputTokens:  run.TotalInputTokens,
			TotalOutputTokens: run.TotalOutputTokens,
			TurnsExecuted:     run.TurnsExecuted,
			Truncated:         run.Truncated,
		}
	}

	wire := workflowWire{
		Task:             est.Task,
		Turns:            est.Turns,
		AgentCount:       est.AgentCount,
		Agents:           agents,
		Subtotal:         est.Subtotal,
		OverheadFraction: est.OverheadFraction,
		OverheadAmount:   est.OverheadAmount,
		TotalCost:        est.TotalCost,
		CostPerTurn:      est.CostPerTurn,
		Suggestions:      make([]suggestionWire, 0, len(suggestions)),
		OptimizedTotal:   optimized,
	}
	for _, sg := range suggestions {
		wire.Suggestions = append(wire.Suggestions, suggestionWire{
			Category:         string(sg.Category),
			Agent:            sg.Agent,
			Recommendation:   sg.Recommendation,
			EstimatedSavings: sg.EstimatedSavings,
		})
	}
	return wire
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
