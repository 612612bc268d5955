// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD cost value with precision scaled to magnitude.
func FormatCost(cost float64) string {
	if cost >= 1000 {
		return "$" + FormatNumber(int64(math.Round(cost)))
	}
	if cost >= 100 {
		return fmt.Sprintf("$%.0f", cost)
	}
	if cost >= 10 {
		return fmt.Sprintf("$%.1f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

// FormatCostPrecise keeps sub-cent amounts visible, for per-turn costs.
// e.g., 0.0042 -> "$0.0042"
func FormatCostPrecise(cost float64) string {
	if cost != 0 && math.Abs(cost) < 0.01 {
		return fmt.Sprintf("$%.4f", cost)
	}
	return FormatCost(cost)
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatHours formats a fractional hour count, picking the unit that keeps
// the number readable. e.g., 0.01 -> "36.0 seconds", 12.0 -> "12.00 hours"
func FormatHours(hours float64) string {
	switch {
	case hours < 1.0/60:
		return fmt.Sprintf("%.1f seconds", hours*3600)
	case hours < 1:
		return fmt.Sprintf("%.1f minutes", hours*60)
	case hours < 24:
		return fmt.Sprintf("%.2f hours", hours)
	default:
		return fmt.Sprintf("%.1f days", hours/24)
	}
}

// FormatEnergy formats an energy quantity given in kWh.
func FormatEnergy(kwh float64) string {
	switch {
	case kwh < 1:
		return fmt.Sprintf("%.0f Wh", kwh*1000)
	case kwh < 1000:
		return fmt.Sprintf("%.2f kWh", kwh)
	default:
		return fmt.Sprintf("%.2f MWh", kwh/1000)
	}
}

// FormatCarbon formats a carbon mass given in kg CO2e.
func FormatCarbon(kg float64) string {
	switch {
	case kg < 1:
		return fmt.Sprintf("%.0f g CO₂e", kg*1000)
	case kg < 1000:
		return fmt.Sprintf("%.2f kg CO₂e", kg)
	default:
		return fmt.Sprintf("%.2f t CO₂e", kg/1000)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDelta formats a cost delta with an explicit sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatCost(delta)
	}
	return "-" + FormatCost(-delta)
}
