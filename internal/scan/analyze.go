package scan

import (
	"bytes"
	"os"
	"strings"
)

// FileAnalysis holds the detection results for a single source file.
type FileAnalysis struct {
	Path        string
	IsML        bool
	HasTraining bool
	// Patterns records one category entry per matching pattern, so a file
	// hitting several large_model patterns lists the category repeatedly.
	Patterns   []string
	Complexity int
	Lines      int
	Err        error
}

// HasCategory reports whether any matched pattern belongs to the category.
func (f FileAnalysis) HasCategory(category string) bool {
	for _, c := range f.Patterns {
		if c == category {
			return true
		}
	}
	return false
}

// AnalyzeFile reads and analyzes one file. Read failures are recorded on the
// result rather than aborting the scan.
func AnalyzeFile(path string) FileAnalysis {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileAnalysis{Path: path, Err: err}
	}
	return analyzeSource(path, content)
}

func analyzeSource(path string, content []byte) FileAnalysis {
	res := FileAnalysis{Path: path}

	text := string(content)
	for _, imp := range mlImports {
		if strings.Contains(text, imp) {
			res.IsML = true
			break
		}
	}

	for _, set := range mlPatterns {
		for _, re := range set.patterns {
			if !re.MatchString(text) {
				continue
			}
			res.Patterns = append(res.Patterns, set.category)
			if strings.Contains(set.category, "training") {
				res.HasTraining = true
			}
			if set.category == CategoryLargeModel {
				res.Complexity += 10
			}
		}
	}

	res.Lines = bytes.Count(content, []byte("\n")) + 1
	if res.Lines > 500 {
		res.Complexity += 5
	}
	if res.Lines > 1000 {
		res.Complexity += 10
	}

	return res
}
