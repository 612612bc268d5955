package scan

import "fmt"

// Suggestion is one optimization recommendation attached to a scan report.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Savings     string `json:"potential_savings"`
	Priority    string `json:"priority"`
}

// suggest derives optimization recommendations from the per-file analyses
// and the cost projection. Rule order is fixed so reports are stable.
func suggest(res *Result, a Analysis) []Suggestion {
	var out []Suggestion

	if anyWithCategory(res.Files, CategoryLargeModel) {
		out = append(out, Suggestion{
			Title:       "Consider Mixed Precision Training",
			Description: "Large models detected. Using FP16/BF16 can reduce memory and speed up training by 2x.",
			Savings:     "30-50%",
			Priority:    "high",
		})
	}

	if res.TrainingFiles > 0 && res.TotalComplexity > 20 {
		out = append(out, Suggestion{
			Title:       "Enable Gradient Checkpointing",
			Description: "Complex training detected. Gradient checkpointing can reduce memory usage significantly.",
			Savings:     "20-40% memory",
			Priority:    "medium",
		})
	}

	if anyWithCategory(res.Files, CategoryDataLoading) {
		out = append(out, Suggestion{
			Title:       "Optimize DataLoader",
			Description: "Consider using pin_memory=True and appropriate num_workers for faster data loading.",
			Savings:     "10-20%",
			Priority:    "low",
		})
	}

	if a.EstimatedCost > 100 {
		out = append(out, Suggestion{
			Title:       "Consider Spot/Preemptible Instances",
			Description: fmt.Sprintf("Estimated cost $%.2f. Spot instances can save 60-90%%.", a.EstimatedCost),
			Savings:     "60-90%",
			Priority:    "high",
		})
	}

	return out
}

func anyWithCategory(files []FileAnalysis, category string) bool {
	for _, f := range files {
		if f.HasCategory(category) {
			return true
		}
	}
	return false
}
