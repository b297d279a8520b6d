// Package units provides shared constants and validation for duration
// units used when expressing detection thresholds.
package units

import "fmt"

// Unit constants
const (
	MS = "ms"
	US = "us"
	S  = "s"
)

// ValidUnits contains all valid duration unit values
var ValidUnits = []string{MS, US, S}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "ms, us, s"
}

// ConvertToMilliseconds converts a duration from the given unit to milliseconds
func ConvertToMilliseconds(value float64, unit string) float64 {
	switch unit {
	case MS:
		return value
	case US:
		return value / 1000.0
	case S:
		return value * 1000.0
	default:
		return value
	}
}

// DurationToSamples converts a wall-time duration to a sample count at
// the given sampling rate. The conversion must be exact: a duration
// that does not map onto a whole number of samples is an error, since
// detection thresholds are defined in sample-index space.
func DurationToSamples(value float64, unit string, samplingRateHz float64) (int64, error) {
	if samplingRateHz <= 0 {
		return 0, fmt.Errorf("sampling rate must be positive, got %v", samplingRateHz)
	}
	ms := ConvertToMilliseconds(value, unit)
	samples := ms * samplingRateHz / 1000.0
	n := int64(samples)
	if samples != float64(n) {
		return 0, fmt.Errorf("duration %v%s is %v samples at %vHz, not a whole number",
			value, unit, samples, samplingRateHz)
	}
	return n, nil
}
