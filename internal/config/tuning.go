// Package config loads and validates detection tuning parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Yanis750/pymovements/internal/detect"
	"github.com/Yanis750/pymovements/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/detection.defaults.json"

// TuningConfig represents the root configuration for detection
// parameters. Fields are pointers so that a partial JSON file only
// overrides what it names; the Get* methods supply defaults for the
// rest. The schema matches the /api/config endpoint so the same JSON
// serves startup configuration and runtime inspection.
type TuningConfig struct {
	// Detector params
	MinimumDurationMS   *int64   `json:"minimum_duration_ms,omitempty"`
	MinimumDuration     *float64 `json:"minimum_duration,omitempty"`      // alternative to minimum_duration_ms
	MinimumDurationUnit *string  `json:"minimum_duration_unit,omitempty"` // ms (default), us, or s
	DispersionThreshold *float64 `json:"dispersion_threshold,omitempty"`
	IncludeNaN          *bool    `json:"include_nan,omitempty"`
	EventName           *string  `json:"event_name,omitempty"`

	// Recording params
	SamplingRateHz *float64 `json:"sampling_rate_hz,omitempty"`

	// Worker params
	WorkerInterval *string `json:"worker_interval,omitempty"` // duration string like "15m"
	DetectorLabel  *string `json:"detector_label,omitempty"`  // model/version tag stored with events
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file
// must have a .json extension and stay under the max file size.
// Fields omitted from the JSON retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinimumDurationMS != nil && *c.MinimumDurationMS <= 0 {
		return fmt.Errorf("minimum_duration_ms must be positive, got %d", *c.MinimumDurationMS)
	}

	if c.MinimumDuration != nil && *c.MinimumDuration <= 0 {
		return fmt.Errorf("minimum_duration must be positive, got %f", *c.MinimumDuration)
	}

	if c.MinimumDurationUnit != nil && !units.IsValid(*c.MinimumDurationUnit) {
		return fmt.Errorf("minimum_duration_unit must be one of %s, got %q",
			units.GetValidUnitsString(), *c.MinimumDurationUnit)
	}

	if c.DispersionThreshold != nil && *c.DispersionThreshold <= 0 {
		return fmt.Errorf("dispersion_threshold must be positive, got %f", *c.DispersionThreshold)
	}

	if c.SamplingRateHz != nil && *c.SamplingRateHz <= 0 {
		return fmt.Errorf("sampling_rate_hz must be positive, got %f", *c.SamplingRateHz)
	}

	if c.WorkerInterval != nil && *c.WorkerInterval != "" {
		if _, err := time.ParseDuration(*c.WorkerInterval); err != nil {
			return fmt.Errorf("invalid worker_interval '%s': %w", *c.WorkerInterval, err)
		}
	}

	return nil
}

// GetMinimumDurationMS returns the minimum duration in milliseconds.
// A minimum_duration with a unit takes precedence over
// minimum_duration_ms; with neither set the default is 100 ms.
func (c *TuningConfig) GetMinimumDurationMS() int64 {
	if c.MinimumDuration != nil {
		unit := units.MS
		if c.MinimumDurationUnit != nil {
			unit = *c.MinimumDurationUnit
		}
		return int64(units.ConvertToMilliseconds(*c.MinimumDuration, unit))
	}
	if c.MinimumDurationMS == nil {
		return 100 // default
	}
	return *c.MinimumDurationMS
}

// GetDispersionThreshold returns the dispersion_threshold value or the default.
func (c *TuningConfig) GetDispersionThreshold() float64 {
	if c.DispersionThreshold == nil {
		return 1.0 // default
	}
	return *c.DispersionThreshold
}

// GetIncludeNaN returns the include_nan value or the default.
func (c *TuningConfig) GetIncludeNaN() bool {
	if c.IncludeNaN == nil {
		return false // default
	}
	return *c.IncludeNaN
}

// GetEventName returns the event_name value or the default.
func (c *TuningConfig) GetEventName() string {
	if c.EventName == nil || *c.EventName == "" {
		return detect.DefaultName
	}
	return *c.EventName
}

// GetSamplingRateHz returns the sampling_rate_hz value or the default.
func (c *TuningConfig) GetSamplingRateHz() float64 {
	if c.SamplingRateHz == nil {
		return 1000.0 // default
	}
	return *c.SamplingRateHz
}

// GetWorkerInterval parses and returns the WorkerInterval as a time.Duration.
func (c *TuningConfig) GetWorkerInterval() time.Duration {
	if c.WorkerInterval == nil || *c.WorkerInterval == "" {
		return 15 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.WorkerInterval)
	if err != nil {
		return 15 * time.Minute // default on parse error
	}
	return d
}

// GetDetectorLabel returns the detector_label value or the default.
func (c *TuningConfig) GetDetectorLabel() string {
	if c.DetectorLabel == nil || *c.DetectorLabel == "" {
		return "idt-v1"
	}
	return *c.DetectorLabel
}

// DetectOptions maps the tuning values onto detector options. The
// minimum duration is expressed in the timestep units of the
// recordings, which this service stores in milliseconds.
func (c *TuningConfig) DetectOptions() detect.Options {
	return detect.Options{
		MinimumDuration:     c.GetMinimumDurationMS(),
		DispersionThreshold: c.GetDispersionThreshold(),
		IncludeNaN:          c.GetIncludeNaN(),
		Name:                c.GetEventName(),
	}
}
