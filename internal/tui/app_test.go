package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/finops"
	"github.com/verdantlabs/ecoburn/internal/scenario"
)

func newTestApp(t *testing.T) App {
	t.Helper()
	a := NewApp(scenario.Demo(), finops.DefaultAdvisor(), nil)
	if a.simErr != nil {
		t.Fatalf("initial simulation: %v", a.simErr)
	}
	if a.est == nil {
		t.Fatal("no estimate after NewApp")
	}
	return a
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, a App, key string) App {
	t.Helper()
	model, _ := a.Update(keyMsg(key))
	return model.(App)
}

func TestWhatIfTurnsRecompute(t *testing.T) {
	a := newTestApp(t)
	baseTurns := a.est.Turns
	baseTotal := a.est.TotalCost

	a = press(t, a, "+")
	if a.est.Turns != baseTurns+1 {
		t.Fatalf("turns = %d after +, want %d", a.est.Turns, baseTurns+1)
	}
	if a.est.TotalCost <= baseTotal {
		t.Fatalf("cost = %f after adding a turn, want above %f", a.est.TotalCost, baseTotal)
	}

	a = press(t, a, "-")
	if a.est.Turns != baseTurns {
		t.Fatalf("turns = %d after -, want %d", a.est.Turns, baseTurns)
	}
	if a.est.TotalCost != baseTotal {
		t.Fatalf("cost = %f after round trip, want %f", a.est.TotalCost, baseTotal)
	}
}

func TestWhatIfTurnsFloorAtOne(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < a.base.Task.Turns+10; i++ {
		a = press(t, a, "-")
	}
	if a.est.Turns != 1 {
		t.Fatalf("turns = %d after holding -, want 1", a.est.Turns)
	}

	a = press(t, a, "-")
	if a.est.Turns != 1 {
		t.Fatalf("turns = %d, want floor of 1", a.est.Turns)
	}
}

func TestResetClearsAdjustments(t *testing.T) {
	a := newTestApp(t)
	baseTotal := a.est.TotalCost

	a = press(t, a, "+")
	a = press(t, a, "+")
	a.contextDelta = 50_000
	a.recompute()

	a = press(t, a, "r")
	if a.turnsDelta != 0 || a.contextDelta != 0 {
		t.Fatalf("deltas = (%d, %d) after reset, want (0, 0)", a.turnsDelta, a.contextDelta)
	}
	if a.est.TotalCost != baseTotal {
		t.Fatalf("cost = %f after reset, want %f", a.est.TotalCost, baseTotal)
	}
}

func TestEffectiveTaskClamps(t *testing.T) {
	a := newTestApp(t)
	a.turnsDelta = -1000
	a.contextDelta = -1 << 40

	task := a.effectiveTask()
	if task.Turns != 1 {
		t.Fatalf("turns = %d, want clamp to 1", task.Turns)
	}
	if task.RepoContextTokens != 0 {
		t.Fatalf("repo context = %d, want clamp to 0", task.RepoContextTokens)
	}
}

func TestAgentCyclingOnTurnsTab(t *testing.T) {
	a := newTestApp(t)
	a.activeTab = 1
	n := len(a.est.AgentRuns)

	for i := 0; i < n+5; i++ {
		a = press(t, a, "j")
	}
	if a.agentIdx != n-1 {
		t.Fatalf("agentIdx = %d after j spam, want %d", a.agentIdx, n-1)
	}

	for i := 0; i < n+5; i++ {
		a = press(t, a, "k")
	}
	if a.agentIdx != 0 {
		t.Fatalf("agentIdx = %d after k spam, want 0", a.agentIdx)
	}
}

func TestViewFillsTerminal(t *testing.T) {
	for _, size := range []struct{ w, h int }{{100, 40}, {80, 24}, {160, 50}} {
		a := newTestApp(t)
		a.width = size.w
		a.height = size.h

		for tab := 0; tab < 5; tab++ {
			a.activeTab = tab
			out := a.View()
			if out == "" {
				t.Fatalf("empty view for tab %d at %dx%d", tab, size.w, size.h)
			}
			if got := lipgloss.Height(out); got != size.h {
				t.Fatalf("tab %d at %dx%d renders %d lines, want %d", tab, size.w, size.h, got, size.h)
			}
		}
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := newTestApp(t)
	a.width = 50
	a.height = 20

	out := a.View()
	if !strings.Contains(out, "Terminal too narrow") {
		t.Fatalf("narrow view missing notice:\n%s", out)
	}
}

func TestHelpOverlayToggle(t *testing.T) {
	a := newTestApp(t)
	a.width = 100
	a.height = 40

	a = press(t, a, "?")
	if !a.showHelp {
		t.Fatal("help not shown after ?")
	}
	if out := a.View(); !strings.Contains(out, "Keyboard Shortcuts") {
		t.Fatal("help overlay missing title")
	}

	a = press(t, a, "j")
	if a.showHelp {
		t.Fatal("help still shown after keypress")
	}
}

func TestQuitKey(t *testing.T) {
	a := newTestApp(t)

	_, cmd := a.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("no command returned for q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q returned %T, want tea.QuitMsg", cmd())
	}
}

func TestCumulativeCostSeriesMatchesTotal(t *testing.T) {
	a := newTestApp(t)

	series := cumulativeCostSeries(a.est)
	if len(series) != a.est.Turns {
		t.Fatalf("series length = %d, want %d", len(series), a.est.Turns)
	}

	final := series[len(series)-1]
	diff := final - a.est.TotalCost
	if diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("series final = %f, want total %f", final, a.est.TotalCost)
	}

	for i := 1; i < len(series); i++ {
		if series[i] < series[i-1] {
			t.Fatalf("series not monotonic at %d: %f < %f", i, series[i], series[i-1])
		}
	}
}
