package events

import (
	"errors"
	"math"
	"testing"

	"github.com/Yanis750/pymovements/internal/gaze"
)

func TestNewProcessorInvalidProperty(t *testing.T) {
	_, err := NewProcessor(Property("peak_velocity"))
	var invalid *InvalidPropertyError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidPropertyError", err)
	}
	if invalid.Property != "peak_velocity" {
		t.Errorf("Property = %q, want peak_velocity", invalid.Property)
	}
}

func TestProcessDuration(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{0, 100}, []int64{80, 250})
	proc, err := NewProcessor(PropertyDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := proc.Process(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0][PropertyDuration] != 80 {
		t.Errorf("duration[0] = %v, want 80", rows[0][PropertyDuration])
	}
	if rows[1][PropertyDuration] != 150 {
		t.Errorf("duration[1] = %v, want 150", rows[1][PropertyDuration])
	}
}

func TestProcessRejectsGazeProperties(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{0}, []int64{10})
	proc, err := NewProcessor(PropertyCentroidX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := proc.Process(frame); err == nil {
		t.Error("expected error for gaze property without samples")
	}
}

func TestProcessGazeCentroid(t *testing.T) {
	positions := []gaze.Point{
		{X: 1, Y: 10},
		{X: 3, Y: 20},
		{X: math.NaN(), Y: math.NaN()}, // skipped
		{X: 100, Y: 100},               // outside event span
	}
	timesteps := []int64{0, 1, 2, 3}
	frame, _ := NewFrame("fixation", []int64{0}, []int64{2})

	proc, err := NewProcessor(PropertyCentroidX, PropertyCentroidY)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := proc.ProcessGaze(frame, positions, timesteps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rows[0][PropertyCentroidX]; math.Abs(got-2.0) > 1e-12 {
		t.Errorf("centroid_x = %v, want 2.0", got)
	}
	if got := rows[0][PropertyCentroidY]; math.Abs(got-15.0) > 1e-12 {
		t.Errorf("centroid_y = %v, want 15.0", got)
	}
}

func TestProcessGazeLengthMismatch(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{0}, []int64{1})
	proc, _ := NewProcessor(PropertyDuration)
	_, err := proc.ProcessGaze(frame, []gaze.Point{{X: 0, Y: 0}}, []int64{0, 1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("error = %v, want ErrLengthMismatch", err)
	}
}

func TestDurationStats(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{0, 100, 200}, []int64{50, 170, 290})
	mean, stddev := DurationStats(frame)
	if math.Abs(mean-70.0) > 1e-12 {
		t.Errorf("mean = %v, want 70", mean)
	}
	if stddev <= 0 {
		t.Errorf("stddev = %v, want > 0", stddev)
	}
}

func TestDurationStatsSingleEvent(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{10}, []int64{60})
	mean, stddev := DurationStats(frame)
	if mean != 50 {
		t.Errorf("mean = %v, want 50", mean)
	}
	if stddev != 0 {
		t.Errorf("stddev = %v, want 0", stddev)
	}
}

func TestDurationStatsEmptyFrame(t *testing.T) {
	frame, _ := NewFrame("fixation", nil, nil)
	mean, stddev := DurationStats(frame)
	if mean != 0 || stddev != 0 {
		t.Errorf("stats = (%v, %v), want (0, 0)", mean, stddev)
	}
}
