package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid ms", MS, true},
		{"valid us", US, true},
		{"valid s", S, true},
		{"invalid unit", "invalid", false},
		{"empty unit", "", false},
		{"uppercase MS", "MS", false}, // Case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	result := GetValidUnitsString()
	expected := "ms, us, s"
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestConvertToMilliseconds(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     string
		expected float64
	}{
		{"0 ms", 0.0, MS, 0.0},
		{"100 ms", 100.0, MS, 100.0},
		{"1000 us", 1000.0, US, 1.0},
		{"500 us", 500.0, US, 0.5},
		{"1 s", 1.0, S, 1000.0},
		{"0.1 s", 0.1, S, 100.0},

		// Unknown unit falls back to the input value
		{"unknown unit", 5.0, "unknown", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToMilliseconds(tt.value, tt.unit)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("ConvertToMilliseconds(%f, %s) = %f, want %f", tt.value, tt.unit, result, tt.expected)
			}
		})
	}
}

func TestDurationToSamples(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     string
		rateHz   float64
		expected int64
		wantErr  bool
	}{
		{"100ms at 1000Hz", 100.0, MS, 1000.0, 100, false},
		{"100ms at 60Hz", 100.0, MS, 60.0, 6, false},
		{"1s at 250Hz", 1.0, S, 250.0, 250, false},
		{"2000us at 500Hz", 2000.0, US, 500.0, 1, false},
		{"fractional samples", 15.0, MS, 90.0, 0, true}, // 1.35 samples
		{"zero rate", 100.0, MS, 0.0, 0, true},
		{"negative rate", 100.0, MS, -10.0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DurationToSamples(tt.value, tt.unit, tt.rateHz)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("DurationToSamples(%f, %s, %f) = %d, want %d", tt.value, tt.unit, tt.rateHz, result, tt.expected)
			}
		})
	}
}
