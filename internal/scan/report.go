package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// maxReportFiles caps the per-file table so reports stay postable as PR
// comments on large repos.
const maxReportFiles = 20

// RenderMarkdown renders the scan outcome as a Markdown report suitable for
// a pull-request comment.
func RenderMarkdown(res *Result, a Analysis) string {
	var b strings.Builder

	status := "✅"
	verdict := "PASSED"
	if !a.Passed {
		status = "❌"
		verdict = "FAILED"
	}

	fmt.Fprintf(&b, "## EcoBurn Cost Analysis Report\n\n")
	fmt.Fprintf(&b, "### %s Status: **%s**\n\n", status, verdict)

	b.WriteString("| Metric | Estimated | Limit | Status |\n")
	b.WriteString("|--------|-----------|-------|--------|\n")
	fmt.Fprintf(&b, "| Cost | $%.2f | %s | %s |\n",
		a.EstimatedCost, limitUSD(a.BudgetLimit), gateMark(a.BudgetLimit, a.EstimatedCost))
	fmt.Fprintf(&b, "| Carbon | %.2f kg CO₂e | %s | %s |\n",
		a.EstimatedCarbon, limitKg(a.CarbonLimit), gateMark(a.CarbonLimit, a.EstimatedCarbon))
	fmt.Fprintf(&b, "| Est. Time | %.1f hours | - | - |\n\n", a.EstimatedHours)

	b.WriteString("### Analysis Summary\n\n")
	fmt.Fprintf(&b, "- **Files Analyzed**: %d\n", a.FilesAnalyzed)
	fmt.Fprintf(&b, "- **ML Files Found**: %d\n", a.MLFilesFound)
	fmt.Fprintf(&b, "- **Training Loops Detected**: %d\n", a.TrainingLoops)
	fmt.Fprintf(&b, "- **GPU / Region**: %s / %s (%d gCO₂e/kWh)\n\n", a.GPU, a.Region, a.Intensity)

	if rows := mlFileRows(res); len(rows) > 0 {
		b.WriteString("### ML Files\n\n")
		b.WriteString("| File | Training | Patterns | Complexity |\n")
		b.WriteString("|------|----------|----------|------------|\n")
		for _, f := range rows {
			training := "no"
			if f.HasTraining {
				training = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n",
				f.Path, training, strings.Join(uniqueCategories(f), ", "), f.Complexity)
		}
		if len(rows) == maxReportFiles {
			b.WriteString("\n_Table truncated._\n")
		}
		b.WriteString("\n")
	}

	if len(a.Suggestions) > 0 {
		b.WriteString("### Optimization Suggestions\n\n")
		for i, s := range a.Suggestions {
			fmt.Fprintf(&b, "%d. %s **%s**\n", i+1, priorityMark(s.Priority), s.Title)
			fmt.Fprintf(&b, "   - %s\n", s.Description)
			fmt.Fprintf(&b, "   - Potential Savings: %s\n\n", s.Savings)
		}
	}

	b.WriteString("---\n<sub>Generated by ecoburn scan</sub>\n")
	return b.String()
}

// WriteGitHubOutput appends the gate outputs to the file named by
// GITHUB_OUTPUT when running under GitHub Actions. No-op otherwise.
func WriteGitHubOutput(a Analysis) error {
	outPath := os.Getenv("GITHUB_OUTPUT")
	if outPath == "" {
		return nil
	}

	suggestions := a.Suggestions
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	encoded, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("encoding suggestions: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "estimated_cost=%s\n", strconv.FormatFloat(a.EstimatedCost, 'f', -1, 64))
	fmt.Fprintf(&b, "estimated_carbon=%s\n", strconv.FormatFloat(a.EstimatedCarbon, 'f', -1, 64))
	fmt.Fprintf(&b, "passed=%t\n", a.Passed)
	fmt.Fprintf(&b, "optimization_suggestions=%s\n", encoded)

	f, err := os.OpenFile(outPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening GITHUB_OUTPUT: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("writing GITHUB_OUTPUT: %w", err)
	}
	return f.Close()
}

// mlFileRows returns the ML files ordered by descending complexity, capped
// for report size.
func mlFileRows(res *Result) []FileAnalysis {
	var rows []FileAnalysis
	for _, f := range res.Files {
		if f.Err == nil && f.IsML {
			rows = append(rows, f)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Complexity != rows[j].Complexity {
			return rows[i].Complexity > rows[j].Complexity
		}
		return rows[i].Path < rows[j].Path
	})
	if len(rows) > maxReportFiles {
		rows = rows[:maxReportFiles]
	}
	return rows
}

func uniqueCategories(f FileAnalysis) []string {
	seen := make(map[string]bool, len(f.Patterns))
	var out []string
	for _, c := range f.Patterns {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func limitUSD(limit float64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("$%.2f", limit)
}

func limitKg(limit float64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%.2f kg", limit)
}

func gateMark(limit, value float64) string {
	if limit > 0 && value > limit {
		return "❌"
	}
	return "✅"
}

func priorityMark(priority string) string {
	switch priority {
	case "high":
		return "🔴"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	}
	return "⚪"
}
