package fixed

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuantize(t *testing.T) {
	testCases := []struct {
		desc     string
		input    string
		places   int32
		mode     RoundingMode
		expected string
	}{
		{"half-down tie", "1.234565", 5, HalfDown, "1.23456"},
		{"half-down above tie", "1.2345651", 5, HalfDown, "1.23457"},
		{"half-down negative tie", "-1.234565", 5, HalfDown, "-1.23456"},
		{"half-down negative above tie", "-1.2345651", 5, HalfDown, "-1.23457"},
		{"half-up tie", "1.234565", 5, HalfUp, "1.23457"},
		{"down", "1.2345699", 5, Down, "1.23456"},
		{"exact", "1.30000", 5, HalfDown, "1.3"},
		{"cash", "12.345", 2, HalfDown, "12.34"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := Quantize(decimal.RequireFromString(tc.input), tc.places, tc.mode)
			if !got.Equal(decimal.RequireFromString(tc.expected)) {
				t.Fatalf("quantize mismatch! should be %s but got %s", tc.expected, got)
			}
		})
	}
}

func TestDiv(t *testing.T) {
	testCases := []struct {
		desc     string
		a, b     string
		places   int32
		mode     RoundingMode
		expected string
	}{
		{"reciprocal bid", "1", "1.30000", 5, HalfDown, "0.76923"},
		{"reciprocal ask", "1", "1.30010", 5, HalfDown, "0.76917"},
		{"exact tie half-down", "1", "8", 2, HalfDown, "0.12"},
		{"exact tie half-up", "1", "8", 2, HalfUp, "0.13"},
		{"negative numerator", "-1", "8", 2, HalfDown, "-0.12"},
		{"negative denominator", "1", "-3", 3, HalfDown, "-0.333"},
		{"weighted average", "1652.5", "1500", 10, HalfDown, "1.1016666667"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := Div(decimal.RequireFromString(tc.a), decimal.RequireFromString(tc.b), tc.places, tc.mode)
			if !got.Equal(decimal.RequireFromString(tc.expected)) {
				t.Fatalf("div mismatch! should be %s but got %s", tc.expected, got)
			}
		})
	}
}

func TestDivByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Div(decimal.NewFromInt(1), decimal.Zero, 5, HalfDown)
}
