// Package events holds the tabular event container produced by the
// detection algorithms and the property processors that derive
// per-event measures from it.
package events

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch reports onset/offset sequences of unequal length.
var ErrLengthMismatch = errors.New("onsets and offsets must have the same length")

// ErrInvalidSpan reports an event whose offset precedes its onset.
var ErrInvalidSpan = errors.New("event offset must not precede onset")

// Event is one detected oculomotor event. Onset and Offset are
// timestamps in the units of the source recording; Duration is their
// difference.
type Event struct {
	Name   string `json:"name"`
	Onset  int64  `json:"onset"`
	Offset int64  `json:"offset"`
}

// Duration returns the event length in timestep units.
func (e Event) Duration() int64 {
	return e.Offset - e.Onset
}

// Frame is an ordered collection of detected events. Rows are
// immutable once appended; ordering is whatever the producer emitted.
type Frame struct {
	rows []Event
}

// NewFrame builds a Frame from parallel onset and offset sequences,
// labelling every row with name.
func NewFrame(name string, onsets, offsets []int64) (*Frame, error) {
	if len(onsets) != len(offsets) {
		return nil, fmt.Errorf("%w: %d onsets, %d offsets", ErrLengthMismatch, len(onsets), len(offsets))
	}
	rows := make([]Event, len(onsets))
	for i := range onsets {
		if offsets[i] < onsets[i] {
			return nil, fmt.Errorf("%w: event %d spans [%d, %d]", ErrInvalidSpan, i, onsets[i], offsets[i])
		}
		rows[i] = Event{Name: name, Onset: onsets[i], Offset: offsets[i]}
	}
	return &Frame{rows: rows}, nil
}

// NewFrameFromEvents builds a Frame from already constructed rows.
func NewFrameFromEvents(rows []Event) *Frame {
	return &Frame{rows: append([]Event(nil), rows...)}
}

// Len returns the number of events in the frame.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Events returns a copy of the event rows in frame order.
func (f *Frame) Events() []Event {
	return append([]Event(nil), f.rows...)
}

// Row returns the i-th event.
func (f *Frame) Row(i int) Event {
	return f.rows[i]
}

// Onsets returns the onset column.
func (f *Frame) Onsets() []int64 {
	out := make([]int64, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Onset
	}
	return out
}

// Offsets returns the offset column.
func (f *Frame) Offsets() []int64 {
	out := make([]int64, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Offset
	}
	return out
}

// Durations returns the duration column.
func (f *Frame) Durations() []int64 {
	out := make([]int64, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Duration()
	}
	return out
}

// Append adds the rows of other to the frame, preserving order.
func (f *Frame) Append(other *Frame) {
	f.rows = append(f.rows, other.rows...)
}
