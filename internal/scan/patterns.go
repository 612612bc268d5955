package scan

import "regexp"

// Pattern categories recorded in FileAnalysis.Patterns.
const (
	CategoryPyTorchTraining    = "pytorch_training"
	CategoryTensorFlowTraining = "tensorflow_training"
	CategoryLargeModel         = "large_model"
	CategoryDataLoading        = "data_loading"
)

// patternSet groups the regexes that signal one category of ML code.
type patternSet struct {
	category string
	patterns []*regexp.Regexp
}

// mlPatterns is ordered so repeated scans record categories deterministically.
var mlPatterns = []patternSet{
	{category: CategoryPyTorchTraining, patterns: compileAll(
		`\.backward\(\)`,
		`optimizer\.step\(\)`,
		`loss\.backward\(\)`,
		`model\.train\(\)`,
	)},
	{category: CategoryTensorFlowTraining, patterns: compileAll(
		`model\.fit\(`,
		`tf\.GradientTape\(`,
		`optimizer\.apply_gradients\(`,
	)},
	{category: CategoryLargeModel, patterns: compileAll(
		`nn\.Linear\(\s*\d{4,}`,
		`nn\.Conv2d\(\s*\d{3,}`,
		`hidden_size\s*=\s*\d{4,}`,
		`num_layers\s*=\s*\d{2,}`,
	)},
	{category: CategoryDataLoading, patterns: compileAll(
		`DataLoader\(`,
		`batch_size\s*=\s*\d+`,
		`num_workers\s*=\s*\d+`,
	)},
}

// mlImports are the import statements that mark a file as ML code at all.
var mlImports = []string{
	"import torch", "from torch",
	"import tensorflow", "from tensorflow",
	"import keras", "from keras",
	"import jax", "from jax",
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
