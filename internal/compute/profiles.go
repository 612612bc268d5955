// Package compute holds GPU reference data and the training-run cost,
// energy, and carbon estimator.
package compute

import (
	"sort"
	"strings"
)

// GPUProfile describes one GPU class for cost and energy math.
type GPUProfile struct {
	Key         string
	Name        string
	TFLOPS      float64 // FP16
	TDPWatts    int
	CostPerHour float64 // on-demand USD per GPU-hour
}

// Profiles maps profile keys to GPU specifications, derived from MLPerf
// numbers and typical on-demand cloud pricing.
var Profiles = map[string]GPUProfile{
	"h100":      {Key: "h100", Name: "NVIDIA H100", TFLOPS: 1979, TDPWatts: 700, CostPerHour: 3.50},
	"a100-80gb": {Key: "a100-80gb", Name: "NVIDIA A100 80GB", TFLOPS: 312, TDPWatts: 400, CostPerHour: 2.50},
	"a100-40gb": {Key: "a100-40gb", Name: "NVIDIA A100 40GB", TFLOPS: 312, TDPWatts: 400, CostPerHour: 2.21},
	"a10g":      {Key: "a10g", Name: "NVIDIA A10G", TFLOPS: 125, TDPWatts: 150, CostPerHour: 1.00},
	"v100":      {Key: "v100", Name: "NVIDIA V100", TFLOPS: 125, TDPWatts: 300, CostPerHour: 1.50},
	"t4":        {Key: "t4", Name: "NVIDIA T4", TFLOPS: 65, TDPWatts: 70, CostPerHour: 0.50},
	"l4":        {Key: "l4", Name: "NVIDIA L4", TFLOPS: 121, TDPWatts: 72, CostPerHour: 0.80},
	"rtx4090":   {Key: "rtx4090", Name: "NVIDIA RTX 4090", TFLOPS: 330, TDPWatts: 450, CostPerHour: 1.20},
	"rtx3090":   {Key: "rtx3090", Name: "NVIDIA RTX 3090", TFLOPS: 142, TDPWatts: 350, CostPerHour: 0.80},
}

// aliases maps cloud-style device labels onto profile keys.
var aliases = map[string]string{
	"nvidia-h100": "h100",
	"nvidia-a100": "a100-80gb",
	"nvidia-v100": "v100",
	"nvidia-t4":   "t4",
	"nvidia-l4":   "l4",
}

// DefaultGPUKey is used when detection fails and nothing is configured.
const DefaultGPUKey = "a100-40gb"

// LookupGPU resolves a profile key or alias, case-insensitively.
func LookupGPU(key string) (GPUProfile, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := aliases[k]; ok {
		k = alias
	}
	p, ok := Profiles[k]
	return p, ok
}

// DetectFromName maps a CUDA device name onto a profile. Unrecognized
// devices fall back to the A100 40GB profile.
func DetectFromName(device string) GPUProfile {
	name := strings.ToLower(device)
	switch {
	case strings.Contains(name, "h100"):
		return Profiles["h100"]
	case strings.Contains(name, "a100"):
		if strings.Contains(name, "80g") {
			return Profiles["a100-80gb"]
		}
		return Profiles["a100-40gb"]
	case strings.Contains(name, "a10g"):
		return Profiles["a10g"]
	case strings.Contains(name, "v100"):
		return Profiles["v100"]
	case strings.Contains(name, "t4"):
		return Profiles["t4"]
	case strings.Contains(name, "l4"):
		return Profiles["l4"]
	case strings.Contains(name, "4090"):
		return Profiles["rtx4090"]
	case strings.Contains(name, "3090"):
		return Profiles["rtx3090"]
	}
	return Profiles[DefaultGPUKey]
}

// SortedProfiles returns all GPU profiles ordered by key.
func SortedProfiles() []GPUProfile {
	out := make([]GPUProfile, 0, len(Profiles))
	for _, p := range Profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// carbonIntensity maps regions to grid intensity in gCO2e/kWh.
var carbonIntensity = map[string]int{
	"us-west":   350,
	"us-east":   400,
	"eu-west":   300,
	"eu-north":  20, // Sweden, mostly hydro and nuclear
	"asia-east": 550,
}

// DefaultCarbonIntensity applies to unknown regions.
const DefaultCarbonIntensity = 400

// CleanestRegion is the lowest-intensity region in the table.
const CleanestRegion = "eu-north"

// IntensityFor returns the carbon intensity for a region,
// case-insensitively, falling back to the default for unknown regions.
func IntensityFor(region string) int {
	if v, ok := carbonIntensity[strings.ToLower(strings.TrimSpace(region))]; ok {
		return v
	}
	return DefaultCarbonIntensity
}

// Regions returns the known regions ordered by intensity, cleanest first.
func Regions() []string {
	out := make([]string, 0, len(carbonIntensity))
	for r := range carbonIntensity {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if carbonIntensity[out[i]] != carbonIntensity[out[j]] {
			return carbonIntensity[out[i]] < carbonIntensity[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
