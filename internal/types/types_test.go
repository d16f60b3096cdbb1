package types

import (
	"errors"
	"testing"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12000", 1200000},
		{"833.33", 83333},
		{" 0.5 ", 50},
		{"-12.50", -1250},
		{"90000000000000000", 9000000000000000000},
	}
	for _, tt := range tests {
		got, err := ParseCents(tt.in)
		if err != nil {
			t.Fatalf("ParseCents(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseCents_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "NaN", "1e400", "1e300", "-1e300", "9.3e16", "92233720368547758.08"} {
		if _, err := ParseCents(in); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseCents(%q) error = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestFrequency_PeriodsPerYear(t *testing.T) {
	tests := map[Frequency]int{
		FrequencyMonthly:    12,
		FrequencyQuarterly:  4,
		FrequencySemiAnnual: 2,
		FrequencyAnnual:     1,
		"weekly":            12,
		"":                  12,
	}
	for f, want := range tests {
		if got := f.PeriodsPerYear(); got != want {
			t.Errorf("%q.PeriodsPerYear() = %d, want %d", f, got, want)
		}
	}
	if got := FrequencyQuarterly.MonthsPerPeriod(); got != 3 {
		t.Errorf("quarterly months per period = %d, want 3", got)
	}
}

func TestOption_DisplayLabel(t *testing.T) {
	if got := (Option{Value: "u-7", Label: "  Unit 7 "}).DisplayLabel(); got != "Unit 7" {
		t.Errorf("label = %q, want Unit 7", got)
	}
	if got := (Option{Value: "u-7"}).DisplayLabel(); got != "u-7" {
		t.Errorf("fallback label = %q, want u-7", got)
	}
}
