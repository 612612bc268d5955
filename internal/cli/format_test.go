package cli

import "testing"

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{152_000, "152.0K"},
		{1_234_567, "1.2M"},
		{4_115_000, "4.1M"},
		{1_234_567_890, "1.2B"},
	}
	for _, tc := range tests {
		if got := FormatTokens(tc.n); got != tc.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	tests := []struct {
		cost float64
		want string
	}{
		{0, "$0.00"},
		{0.5425, "$0.54"},
		{9.99, "$9.99"},
		{16.45, "$16.4"},
		{175, "$175"},
		{1234.56, "$1,235"},
	}
	for _, tc := range tests {
		if got := FormatCost(tc.cost); got != tc.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tc.cost, got, tc.want)
		}
	}
}

func TestFormatCostPrecise(t *testing.T) {
	tests := []struct {
		cost float64
		want string
	}{
		{0, "$0.00"},
		{0.0042, "$0.0042"},
		{0.5425, "$0.54"},
		{175, "$175"},
	}
	for _, tc := range tests {
		if got := FormatCostPrecise(tc.cost); got != tc.want {
			t.Errorf("FormatCostPrecise(%v) = %q, want %q", tc.cost, got, tc.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0.005, "18.0 seconds"},
		{0.5, "30.0 minutes"},
		{12, "12.00 hours"},
		{48, "2.0 days"},
	}
	for _, tc := range tests {
		if got := FormatHours(tc.hours); got != tc.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tc.hours, got, tc.want)
		}
	}
}

func TestFormatEnergy(t *testing.T) {
	tests := []struct {
		kwh  float64
		want string
	}{
		{0.48, "480 Wh"},
		{67.2, "67.20 kWh"},
		{1500, "1.50 MWh"},
	}
	for _, tc := range tests {
		if got := FormatEnergy(tc.kwh); got != tc.want {
			t.Errorf("FormatEnergy(%v) = %q, want %q", tc.kwh, got, tc.want)
		}
	}
}

func TestFormatCarbon(t *testing.T) {
	tests := []struct {
		kg   float64
		want string
	}{
		{0.512, "512 g CO₂e"},
		{23.52, "23.52 kg CO₂e"},
		{1200, "1.20 t CO₂e"},
	}
	for _, tc := range tests {
		if got := FormatCarbon(tc.kg); got != tc.want {
			t.Errorf("FormatCarbon(%v) = %q, want %q", tc.kg, got, tc.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{152000, "152,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tc := range tests {
		if got := FormatNumber(tc.n); got != tc.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{125, "2m"},
		{3725, "1h 2m"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.secs); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.secs, got, tc.want)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(10, 4); got != "+$6.00" {
		t.Errorf("FormatDelta(10, 4) = %q, want +$6.00", got)
	}
	if got := FormatDelta(4, 10); got != "-$6.00" {
		t.Errorf("FormatDelta(4, 10) = %q, want -$6.00", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline(nil); got != "" {
		t.Errorf("RenderSparkline(nil) = %q, want empty", got)
	}
	got := RenderSparkline([]float64{0, 1, 2, 4})
	if len([]rune(got)) != 4 {
		t.Errorf("sparkline runes = %d, want 4 (%q)", len([]rune(got)), got)
	}
}

func TestRenderHorizontalBar(t *testing.T) {
	if got := RenderHorizontalBar(5, 10, 10); got != "█████" {
		t.Errorf("half bar = %q", got)
	}
	if got := RenderHorizontalBar(20, 10, 10); got != "██████████" {
		t.Errorf("overflow bar = %q, want clamped to width", got)
	}
	if got := RenderHorizontalBar(5, 0, 10); got != "" {
		t.Errorf("zero max bar = %q, want empty", got)
	}
}
