package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the per-repo scan policy, looked up at the scan root.
const PolicyFile = ".ecoburn.yml"

// Policy holds repo-level scan settings. Pointer fields distinguish "not
// set" from explicit zeroes so flags and config defaults can layer cleanly.
type Policy struct {
	BudgetLimit *float64 `yaml:"budget_limit"`
	CarbonLimit *float64 `yaml:"carbon_limit"`
	GPU         string   `yaml:"gpu"`
	Region      string   `yaml:"region"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
}

// LoadPolicy reads the policy file at the scan root. A missing file is not
// an error and returns nil.
func LoadPolicy(root string) (*Policy, error) {
	data, err := os.ReadFile(filepath.Join(root, PolicyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", PolicyFile, err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", PolicyFile, err)
	}
	return &p, nil
}
