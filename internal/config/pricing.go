package config

import (
	"sort"
	"strings"
	"time"

	"github.com/verdantlabs/ecoburn/internal/finops"
)

type modelPricingVersion struct {
	EffectiveFrom time.Time
	Pricing       finops.ModelPricing
}

// DefaultPricing maps canonical model names to per-MTok prices and context
// windows. Simulation-facing reference data; user overrides layer on top via
// CatalogWith.
var DefaultPricing = map[string]finops.ModelPricing{
	"gemini-1.5-pro": {
		Name: "gemini-1.5-pro", InputPerMTok: 3.50, OutputPerMTok: 10.50, ContextWindow: 2_000_000,
	},
	"gemini-1.5-flash": {
		Name: "gemini-1.5-flash", InputPerMTok: 0.35, OutputPerMTok: 1.05, ContextWindow: 1_000_000,
	},
	"gemini-2.0-pro": {
		Name: "gemini-2.0-pro", InputPerMTok: 3.50, OutputPerMTok: 10.50, ContextWindow: 2_000_000,
	},
	"gemini-2.0-flash": {
		Name: "gemini-2.0-flash", InputPerMTok: 0.35, OutputPerMTok: 1.05, ContextWindow: 1_000_000,
	},
	"claude-opus-4-1": {
		Name: "claude-opus-4-1", InputPerMTok: 15.00, OutputPerMTok: 75.00, ContextWindow: 200_000,
	},
	"claude-sonnet-4-5": {
		Name: "claude-sonnet-4-5", InputPerMTok: 3.00, OutputPerMTok: 15.00, ContextWindow: 200_000,
	},
	"claude-haiku-4-5": {
		Name: "claude-haiku-4-5", InputPerMTok: 1.00, OutputPerMTok: 5.00, ContextWindow: 200_000,
	},
	"gpt-4o": {
		Name: "gpt-4o", InputPerMTok: 2.50, OutputPerMTok: 10.00, ContextWindow: 128_000,
	},
	"gpt-4o-mini": {
		Name: "gpt-4o-mini", InputPerMTok: 0.15, OutputPerMTok: 0.60, ContextWindow: 128_000,
	},
}

// defaultPricingHistory stores effective-dated prices for each model.
// Entries must be sorted by EffectiveFrom ascending.
var defaultPricingHistory = makeDefaultPricingHistory(DefaultPricing)

func makeDefaultPricingHistory(base map[string]finops.ModelPricing) map[string][]modelPricingVersion {
	history := make(map[string][]modelPricingVersion, len(base))
	for modelName, pricing := range base {
		history[modelName] = []modelPricingVersion{
			{Pricing: pricing},
		}
	}

	// gemini-1.5-flash halved its prices in August 2024.
	history["gemini-1.5-flash"] = []modelPricingVersion{
		{
			Pricing: finops.ModelPricing{
				Name: "gemini-1.5-flash", InputPerMTok: 0.70, OutputPerMTok: 2.10, ContextWindow: 1_000_000,
			},
		},
		{
			EffectiveFrom: time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC),
			Pricing:       base["gemini-1.5-flash"],
		},
	}

	return history
}

func hasPricingModel(model string) bool {
	if _, ok := defaultPricingHistory[model]; ok {
		return true
	}
	_, ok := DefaultPricing[model]
	return ok
}

// NormalizeModelName lowercases a model identifier and strips provider
// prefixes and date suffixes.
// e.g., "google/Gemini-2.0-Pro" -> "gemini-2.0-pro",
// "claude-sonnet-4-5-20250929" -> "claude-sonnet-4-5"
func NormalizeModelName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if hasPricingModel(name) {
		return name
	}

	// Models can have date suffixes like -20250929 (8 digits)
	parts := strings.Split(name, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if hasPricingModel(candidate) {
				return candidate
			}
		}
	}

	return name
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// LookupPricing returns the current pricing for a model, normalizing the
// name first. Returns zero pricing and false if the model is unknown.
func LookupPricing(model string) (finops.ModelPricing, bool) {
	return LookupPricingAt(model, time.Now())
}

// LookupPricingAt returns the pricing for a model at the given timestamp.
// If at is zero, the latest known pricing entry is used.
func LookupPricingAt(model string, at time.Time) (finops.ModelPricing, bool) {
	normalized := NormalizeModelName(model)
	versions, ok := defaultPricingHistory[normalized]
	if !ok || len(versions) == 0 {
		p, fallback := DefaultPricing[normalized]
		return p, fallback
	}

	if at.IsZero() {
		return versions[len(versions)-1].Pricing, true
	}

	at = at.UTC()
	selected := versions[0].Pricing
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom.UTC()) {
			selected = v.Pricing
			continue
		}
		break
	}
	return selected, true
}

// CatalogWith merges user pricing overrides over the default catalog and
// returns the combined map keyed by canonical model name. Overrides may
// introduce unknown models; those entries need a context window to pass
// simulation validation.
func CatalogWith(overrides PricingOverrides) map[string]finops.ModelPricing {
	out := make(map[string]finops.ModelPricing, len(DefaultPricing)+len(overrides.Overrides))
	for name, p := range DefaultPricing {
		out[name] = p
	}

	for name, ov := range overrides.Overrides {
		key := NormalizeModelName(name)
		p, ok := out[key]
		if !ok {
			p = finops.ModelPricing{Name: key}
		}
		if ov.InputPerMTok != nil {
			p.InputPerMTok = *ov.InputPerMTok
		}
		if ov.OutputPerMTok != nil {
			p.OutputPerMTok = *ov.OutputPerMTok
		}
		if ov.ContextWindow != nil {
			p.ContextWindow = *ov.ContextWindow
		}
		out[key] = p
	}

	return out
}

// SortedCatalog returns catalog entries ordered by model name.
func SortedCatalog(catalog map[string]finops.ModelPricing) []finops.ModelPricing {
	out := make([]finops.ModelPricing, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
