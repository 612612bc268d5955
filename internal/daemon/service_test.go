package daemon

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/scan"
)

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		FilesScanned:    40,
		MLFiles:         10,
		TrainingFiles:   3,
		EstimatedCost:   12.5,
		EstimatedCarbon: 2.0,
		Passed:          true,
	}
	curr := Snapshot{
		FilesScanned:    44,
		MLFiles:         12,
		TrainingFiles:   5,
		EstimatedCost:   20.0,
		EstimatedCarbon: 3.2,
		Passed:          false,
	}

	delta := diffSnapshots(prev, curr)
	if delta.FilesScanned != 4 {
		t.Fatalf("FilesScanned delta = %d, want 4", delta.FilesScanned)
	}
	if delta.MLFiles != 2 {
		t.Fatalf("MLFiles delta = %d, want 2", delta.MLFiles)
	}
	if delta.TrainingFiles != 2 {
		t.Fatalf("TrainingFiles delta = %d, want 2", delta.TrainingFiles)
	}
	if math.Abs(delta.EstimatedCost-7.5) > 1e-9 {
		t.Fatalf("cost delta = %.2f, want 7.50", delta.EstimatedCost)
	}
	if math.Abs(delta.EstimatedCarbon-1.2) > 1e-9 {
		t.Fatalf("carbon delta = %.2f, want 1.20", delta.EstimatedCarbon)
	}
	if !delta.GateChanged {
		t.Fatal("gate flip not detected")
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
}

func TestDiffSnapshots_NoChange(t *testing.T) {
	snap := Snapshot{FilesScanned: 10, MLFiles: 2, EstimatedCost: 1.5, Passed: true}

	delta := diffSnapshots(snap, snap)
	if !delta.isZero() {
		t.Fatalf("identical snapshots produced non-zero delta: %+v", delta)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{}, nil)

	if s.cfg.Interval != 15*time.Minute {
		t.Fatalf("Interval = %v, want 15m", s.cfg.Interval)
	}
	if s.cfg.Addr != "127.0.0.1:8787" {
		t.Fatalf("Addr = %q", s.cfg.Addr)
	}
	if s.cfg.EventsBuffer != 200 {
		t.Fatalf("EventsBuffer = %d, want 200", s.cfg.EventsBuffer)
	}
	if s.gpu.Key != compute.DefaultGPUKey {
		t.Fatalf("gpu fallback = %q, want %q", s.gpu.Key, compute.DefaultGPUKey)
	}
	if _, ok := s.cfg.Catalog["gemini-1.5-pro"]; !ok {
		t.Fatal("default catalog missing gemini-1.5-pro")
	}
	if s.log == nil {
		t.Fatal("nil logger not replaced")
	}
}

func TestSnapshotFromAnalysis(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := scan.Analysis{
		FilesAnalyzed:   9,
		MLFilesFound:    4,
		TrainingLoops:   2,
		TotalComplexity: 35,
		EstimatedCost:   8.0,
		EstimatedCarbon: 0.51,
		EstimatedHours:  3.2,
		Passed:          true,
	}

	snap := snapshotFromAnalysis(a, at)
	if !snap.At.Equal(at) {
		t.Fatalf("At = %v, want %v", snap.At, at)
	}
	if snap.FilesScanned != 9 || snap.MLFiles != 4 || snap.TrainingFiles != 2 {
		t.Fatalf("counts = %d/%d/%d, want 9/4/2", snap.FilesScanned, snap.MLFiles, snap.TrainingFiles)
	}
	if snap.Complexity != 35 {
		t.Fatalf("Complexity = %d, want 35", snap.Complexity)
	}
	if math.Abs(snap.EstimatedCost-8.0) > 1e-9 || math.Abs(snap.EstimatedCarbon-0.51) > 1e-9 {
		t.Fatalf("cost/carbon = %.2f/%.2f, want 8.00/0.51", snap.EstimatedCost, snap.EstimatedCarbon)
	}
	if math.Abs(snap.EstimatedHours-3.2) > 1e-9 {
		t.Fatalf("hours = %.2f, want 3.20", snap.EstimatedHours)
	}
	if !snap.Passed {
		t.Fatal("Passed not carried over")
	}
}

func TestScanOnce_ErrorRecorded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := New(Config{ScanDir: filepath.Join(t.TempDir(), "gone")}, zap.New(core))

	s.scanOnce()

	st := s.snapshotStatus()
	if st.LastError == "" {
		t.Fatal("LastError empty after failed scan")
	}
	if st.ScanCount != 1 {
		t.Fatalf("ScanCount = %d, want 1", st.ScanCount)
	}
	if s.hasSnapshot {
		t.Fatal("failed scan produced a snapshot")
	}
	if n := logs.FilterMessage("scan failed").Len(); n != 1 {
		t.Fatalf("scan failed logged %d times, want 1", n)
	}
}

func TestScanOnce_PublishesSnapshotThenDelta(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.py"), []byte("def f():\n    return 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.InfoLevel)
	s := New(Config{ScanDir: dir, GPUKey: "h100", Region: "us-east"}, zap.New(core))

	s.scanOnce()

	s.mu.RLock()
	if !s.hasSnapshot {
		s.mu.RUnlock()
		t.Fatal("first scan produced no snapshot")
	}
	if len(s.events) != 1 || s.events[0].Type != "snapshot" {
		s.mu.RUnlock()
		t.Fatalf("events after first scan = %+v, want one snapshot event", s.events)
	}
	s.mu.RUnlock()

	if err := os.WriteFile(filepath.Join(dir, "train.py"), []byte("import torch\nloss.backward()\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s.scanOnce()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.events))
	}
	ev := s.events[1]
	if ev.Type != "scan_delta" {
		t.Fatalf("second event type = %q, want scan_delta", ev.Type)
	}
	if ev.Delta.FilesScanned != 1 || ev.Delta.MLFiles != 1 || ev.Delta.TrainingFiles != 1 {
		t.Fatalf("delta = %+v, want +1 file/+1 ml/+1 training", ev.Delta)
	}
	if s.scanCount != 2 || s.lastError != "" {
		t.Fatalf("scanCount = %d lastError = %q", s.scanCount, s.lastError)
	}
	if n := logs.FilterMessage("scan complete").Len(); n != 2 {
		t.Fatalf("scan complete logged %d times, want 2", n)
	}
}

func TestHandleStatus(t *testing.T) {
	s := New(Config{GPUKey: "h100", Region: "us-west", BudgetLimit: 100, CarbonLimit: 5}, nil)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.GPU != "h100" {
		t.Fatalf("GPU = %q, want h100", st.GPU)
	}
	if st.Region != "us-west" {
		t.Fatalf("Region = %q, want us-west", st.Region)
	}
	if st.BudgetLimit != 100 || st.CarbonLimit != 5 {
		t.Fatalf("limits = %.0f/%.0f, want 100/5", st.BudgetLimit, st.CarbonLimit)
	}
	if st.IntervalSec != 900 {
		t.Fatalf("IntervalSec = %d, want 900", st.IntervalSec)
	}
	if st.ScanCount != 0 {
		t.Fatalf("ScanCount = %d, want 0", st.ScanCount)
	}
}

func TestHandlePricing(t *testing.T) {
	s := New(Config{}, nil)

	rec := httptest.NewRecorder()
	s.handlePricing(rec, httptest.NewRequest(http.MethodGet, "/v1/pricing", nil))

	var entries []pricingEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding pricing: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("empty pricing catalog")
	}
	if entries[0].Model != "claude-haiku-4-5" {
		t.Fatalf("entries[0] = %q, want claude-haiku-4-5 (sorted)", entries[0].Model)
	}

	var flash *pricingEntry
	for i := range entries {
		if entries[i].Model == "gemini-1.5-flash" {
			flash = &entries[i]
			break
		}
	}
	if flash == nil {
		t.Fatal("gemini-1.5-flash missing from catalog")
	}
	if flash.InputPerMTok != 0.35 || flash.OutputPerMTok != 1.05 {
		t.Fatalf("flash pricing = %.2f/%.2f, want 0.35/1.05", flash.InputPerMTok, flash.OutputPerMTok)
	}
	if flash.ContextWindow != 1_000_000 {
		t.Fatalf("flash window = %d, want 1000000", flash.ContextWindow)
	}
}

func TestHandleGPUs(t *testing.T) {
	s := New(Config{}, nil)

	rec := httptest.NewRecorder()
	s.handleGPUs(rec, httptest.NewRequest(http.MethodGet, "/v1/gpus", nil))

	var body struct {
		GPUs    []gpuEntry    `json:"gpus"`
		Regions []regionEntry `json:"regions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding gpus: %v", err)
	}

	var h100 *gpuEntry
	for i := range body.GPUs {
		if body.GPUs[i].Key == "h100" {
			h100 = &body.GPUs[i]
			break
		}
	}
	if h100 == nil {
		t.Fatal("h100 missing from profile list")
	}
	if h100.CostPerHour != 3.50 || h100.TDPWatts != 700 {
		t.Fatalf("h100 = $%.2f/h %dW, want $3.50/h 700W", h100.CostPerHour, h100.TDPWatts)
	}

	if len(body.Regions) == 0 {
		t.Fatal("no regions returned")
	}
	if body.Regions[0].Name != compute.CleanestRegion {
		t.Fatalf("regions[0] = %q, want %q (cleanest first)", body.Regions[0].Name, compute.CleanestRegion)
	}
	if body.Regions[0].Intensity != 20 {
		t.Fatalf("cleanest intensity = %d, want 20", body.Regions[0].Intensity)
	}
}

func TestHandleScan_NoScanYet(t *testing.T) {
	s := New(Config{}, nil)

	rec := httptest.NewRecorder()
	s.handleScan(rec, httptest.NewRequest(http.MethodGet, "/v1/scan", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no scan available") {
		t.Fatalf("body = %q, want error message", rec.Body.String())
	}
}

func TestHandleSimulate(t *testing.T) {
	s := New(Config{}, nil)

	body := `{
		"task": "bugfix sweep",
		"model": "Google/Gemini-1.5-Flash",
		"system_prompt_tokens": 2000,
		"repo_context_tokens": 10000,
		"turns": 3,
		"avg_output_tokens_per_turn": 1000
	}`
	rec := httptest.NewRecorder()
	s.handleSimulate(rec, httptest.NewRequest(http.MethodPost, "/v1/simulate", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
	}

	var res simulationWire
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding simulation: %v", err)
	}
	if res.Task != "bugfix sweep" {
		t.Fatalf("Task = %q", res.Task)
	}
	if res.Model != "gemini-1.5-flash" {
		t.Fatalf("Model = %q, want normalized gemini-1.5-flash", res.Model)
	}
	if res.TurnsExecuted != 3 || res.Truncated {
		t.Fatalf("turns = %d truncated = %v, want 3 false", res.TurnsExecuted, res.Truncated)
	}
	if len(res.Turns) != 3 {
		t.Fatalf("trace length = %d, want 3", len(res.Turns))
	}

	// Turn inputs: 12000, then +1050 history per turn (1000 output + 50 ack).
	if res.Turns[0].InputTokens != 12000 {
		t.Fatalf("turn 1 input = %d, want 12000", res.Turns[0].InputTokens)
	}
	if res.Turns[2].InputTokens != 14100 {
		t.Fatalf("turn 3 input = %d, want 14100", res.Turns[2].InputTokens)
	}
	if math.Abs(res.Turns[0].Cost-0.00525) > 1e-9 {
		t.Fatalf("turn 1 cost = %.6f, want 0.005250", res.Turns[0].Cost)
	}
	if res.TotalInputTokens != 39150 || res.TotalOutputTokens != 3000 {
		t.Fatalf("token totals = %d/%d, want 39150/3000", res.TotalInputTokens, res.TotalOutputTokens)
	}
	if math.Abs(res.TotalCost-0.0168025) > 1e-9 {
		t.Fatalf("TotalCost = %.7f, want 0.0168025", res.TotalCost)
	}
}

func TestHandleSimulate_Errors(t *testing.T) {
	s := New(Config{}, nil)

	cases := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{"get rejected", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed json", http.MethodPost, `{"model": `, http.StatusBadRequest},
		{"unknown model", http.MethodPost, `{"model": "gpt-99", "turns": 2}`, http.StatusBadRequest},
		{"zero turns", http.MethodPost, `{"model": "gpt-4o", "turns": 0}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleSimulate(rec, httptest.NewRequest(tc.method, "/v1/simulate", strings.NewReader(tc.body)))
			if rec.Code != tc.code {
				t.Fatalf("status code = %d, want %d (body %s)", rec.Code, tc.code, rec.Body.String())
			}
			if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
				t.Fatalf("error Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestHandleWorkflow(t *testing.T) {
	s := New(Config{}, nil)

	body := `{
		"task": "checkout refactor",
		"repo_context_tokens": 5000,
		"turns": 2,
		"avg_output_tokens_per_turn": 500,
		"coordination_overhead": 0.1,
		"agents": [
			{"name": "architect", "role": "system design", "model": "gemini-1.5-pro", "system_prompt_tokens": 1000},
			{"name": "coder", "role": "implementation", "model": "google/Gemini-1.5-Flash", "system_prompt_tokens": 1000}
		]
	}`
	rec := httptest.NewRecorder()
	s.handleWorkflow(rec, httptest.NewRequest(http.MethodPost, "/v1/workflow", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
	}

	var res workflowWire
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding workflow: %v", err)
	}
	if res.AgentCount != 2 || len(res.Agents) != 2 {
		t.Fatalf("agent count = %d/%d, want 2/2", res.AgentCount, len(res.Agents))
	}

	// Per agent: inputs 6000 + 6550 = 12550 tokens, outputs 1000.
	// Pro: 12550*3.50/1e6 + 1000*10.50/1e6 = 0.054425
	// Flash: 12550*0.35/1e6 + 1000*1.05/1e6 = 0.0054425
	if res.Agents[0].Agent != "architect" || res.Agents[0].Model != "gemini-1.5-pro" {
		t.Fatalf("agents[0] = %q on %q", res.Agents[0].Agent, res.Agents[0].Model)
	}
	if math.Abs(res.Agents[0].TotalCost-0.054425) > 1e-9 {
		t.Fatalf("architect cost = %.6f, want 0.054425", res.Agents[0].TotalCost)
	}
	if math.Abs(res.Agents[1].TotalCost-0.0054425) > 1e-9 {
		t.Fatalf("coder cost = %.7f, want 0.0054425", res.Agents[1].TotalCost)
	}
	if math.Abs(res.Subtotal-0.0598675) > 1e-9 {
		t.Fatalf("subtotal = %.7f, want 0.0598675", res.Subtotal)
	}
	if math.Abs(res.TotalCost-0.06585425) > 1e-9 {
		t.Fatalf("total = %.8f, want 0.06585425", res.TotalCost)
	}
	if math.Abs(res.CostPerTurn-res.TotalCost/2) > 1e-9 {
		t.Fatalf("cost per turn = %.8f", res.CostPerTurn)
	}

	// The pro-tier architect triggers the downgrade rule.
	if len(res.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(res.Suggestions))
	}
	sg := res.Suggestions[0]
	if sg.Category != "MODEL_DOWNGRADE" || sg.Agent != "architect" {
		t.Fatalf("suggestion = %s for %q", sg.Category, sg.Agent)
	}
	if math.Abs(sg.EstimatedSavings-0.054425*0.85) > 1e-9 {
		t.Fatalf("savings = %.8f, want %.8f", sg.EstimatedSavings, 0.054425*0.85)
	}
	if math.Abs(res.OptimizedTotal-(res.TotalCost-sg.EstimatedSavings)) > 1e-9 {
		t.Fatalf("optimized total = %.8f", res.OptimizedTotal)
	}
}

func TestHandleWorkflow_DefaultOverhead(t *testing.T) {
	s := New(Config{}, nil)

	body := `{
		"task": "docs pass",
		"turns": 2,
		"avg_output_tokens_per_turn": 500,
		"agents": [
			{"name": "writer", "model": "gemini-1.5-flash", "system_prompt_tokens": 1000}
		]
	}`
	rec := httptest.NewRecorder()
	s.handleWorkflow(rec, httptest.NewRequest(http.MethodPost, "/v1/workflow", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
	}

	var res workflowWire
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding workflow: %v", err)
	}
	if math.Abs(res.OverheadFraction-0.2) > 1e-9 {
		t.Fatalf("overhead fraction = %.2f, want default 0.20", res.OverheadFraction)
	}
	if len(res.Suggestions) != 0 {
		t.Fatalf("suggestions = %d, want 0 for cheap flash-only run", len(res.Suggestions))
	}
}

func TestHandleEvents(t *testing.T) {
	s := New(Config{}, nil)
	s.publishEvent(Event{ID: 1, Type: "snapshot"})
	s.publishEvent(Event{ID: 2, Type: "scan_delta"})

	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))

	var events []Event
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ID != 1 || events[1].Type != "scan_delta" {
		t.Fatalf("events = %+v", events)
	}
}
