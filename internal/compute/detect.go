package compute

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DetectGPU queries nvidia-smi for installed devices and returns the matched
// profile plus the device count. Callers fall back to a configured or default
// profile when this fails; detection failure never blocks an estimate.
func DetectGPU(ctx context.Context) (GPUProfile, int, error) {
	out, err := exec.CommandContext(ctx,
		"nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return GPUProfile{}, 0, fmt.Errorf("nvidia-smi: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	if len(names) == 0 {
		return GPUProfile{}, 0, errors.New("nvidia-smi reported no devices")
	}

	return DetectFromName(names[0]), len(names), nil
}
