package events

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFrame(t *testing.T) {
	frame, err := NewFrame("fixation", []int64{0, 100}, []int64{50, 180})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", frame.Len())
	}

	want := []Event{
		{Name: "fixation", Onset: 0, Offset: 50},
		{Name: "fixation", Onset: 100, Offset: 180},
	}
	if diff := cmp.Diff(want, frame.Events()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFrameEmpty(t *testing.T) {
	frame, err := NewFrame("fixation", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Len() != 0 {
		t.Errorf("Len() = %d, want 0", frame.Len())
	}
}

func TestNewFrameLengthMismatch(t *testing.T) {
	_, err := NewFrame("fixation", []int64{0, 1}, []int64{2})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("error = %v, want ErrLengthMismatch", err)
	}
}

func TestNewFrameInvertedSpan(t *testing.T) {
	_, err := NewFrame("fixation", []int64{5}, []int64{3})
	if !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("error = %v, want ErrInvalidSpan", err)
	}

	// A zero-length span is allowed; only inversion is rejected.
	frame, err := NewFrame("fixation", []int64{5}, []int64{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Durations()[0] != 0 {
		t.Errorf("duration = %d, want 0", frame.Durations()[0])
	}
}

func TestFrameColumns(t *testing.T) {
	frame, err := NewFrame("fixation", []int64{0, 100, 300}, []int64{80, 220, 400})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]int64{0, 100, 300}, frame.Onsets()); diff != "" {
		t.Errorf("onsets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{80, 220, 400}, frame.Offsets()); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{80, 120, 100}, frame.Durations()); diff != "" {
		t.Errorf("durations mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameAppend(t *testing.T) {
	a, _ := NewFrame("fixation", []int64{0}, []int64{10})
	b, _ := NewFrame("fixation", []int64{20}, []int64{30})
	a.Append(b)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	if a.Row(1).Onset != 20 {
		t.Errorf("Row(1).Onset = %d, want 20", a.Row(1).Onset)
	}
}

func TestFrameEventsIsCopy(t *testing.T) {
	frame, _ := NewFrame("fixation", []int64{0}, []int64{10})
	rows := frame.Events()
	rows[0].Onset = 99
	if frame.Row(0).Onset != 0 {
		t.Error("mutating the Events() slice must not affect the frame")
	}
}
