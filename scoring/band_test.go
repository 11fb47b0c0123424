package scoring

import (
	"math"
	"testing"
)

func TestRoundToBand(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"exact band", 6.5, 6.5},
		{"rounds down", 6.2, 6.0},
		{"tie rounds up", 6.25, 6.5},
		{"rounds up", 6.4, 6.5},
		{"three quarters rounds up", 6.75, 7.0},
		{"clamps negative", -2.0, 0.0},
		{"clamps above nine", 11.5, 9.0},
		{"zero", 0.0, 0.0},
		{"max band", 9.0, 9.0},
		{"nan becomes zero", math.NaN(), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundToBand(tt.input); got != tt.expected {
				t.Errorf("RoundToBand(%v) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestOverallBand(t *testing.T) {
	tests := []struct {
		name     string
		bands    []float64
		expected float64
	}{
		{"empty", nil, 0.0},
		{"single", []float64{7.0}, 7.0},
		{"even mean", []float64{6.0, 7.0}, 6.5},
		{"ielts style four criteria", []float64{6.5, 7.0, 6.0, 6.5}, 6.5},
		{"mean of 6.125 rounds down", []float64{6.0, 6.0, 6.0, 6.5}, 6.0},
		{"mean of 6.25 rounds up", []float64{6.0, 6.5}, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallBand(tt.bands...); got != tt.expected {
				t.Errorf("OverallBand(%v) = %v, expected %v", tt.bands, got, tt.expected)
			}
		})
	}
}
