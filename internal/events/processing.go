package events

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Yanis750/pymovements/internal/gaze"
)

// Property identifies a per-event measure computed by a Processor.
type Property string

const (
	// PropertyDuration is the offset minus onset of an event.
	PropertyDuration Property = "duration"
	// PropertyCentroidX is the mean x position over the event span.
	PropertyCentroidX Property = "centroid_x"
	// PropertyCentroidY is the mean y position over the event span.
	PropertyCentroidY Property = "centroid_y"
)

// frameProperties can be computed from the event frame alone; all
// other properties need the gaze samples.
var frameProperties = map[Property]bool{
	PropertyDuration: true,
}

var gazeProperties = map[Property]bool{
	PropertyDuration:  true,
	PropertyCentroidX: true,
	PropertyCentroidY: true,
}

// InvalidPropertyError reports a property name that the processor does
// not support.
type InvalidPropertyError struct {
	Property Property
	Valid    []Property
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("property %q is invalid, valid properties are %v", e.Property, e.Valid)
}

// Processor computes per-event properties from a Frame. Properties
// that need gaze samples must go through ProcessGaze.
type Processor struct {
	properties []Property
}

// NewProcessor validates the requested property names and returns a
// processor for them.
func NewProcessor(properties ...Property) (*Processor, error) {
	for _, p := range properties {
		if !gazeProperties[p] {
			return nil, &InvalidPropertyError{
				Property: p,
				Valid:    []Property{PropertyDuration, PropertyCentroidX, PropertyCentroidY},
			}
		}
	}
	return &Processor{properties: properties}, nil
}

// Process computes the frame-only properties for every event. It
// fails if the processor was configured with a property that needs
// gaze samples.
func (p *Processor) Process(frame *Frame) ([]map[Property]float64, error) {
	for _, prop := range p.properties {
		if !frameProperties[prop] {
			return nil, &InvalidPropertyError{
				Property: prop,
				Valid:    []Property{PropertyDuration},
			}
		}
	}
	return p.process(frame, nil, nil)
}

// ProcessGaze computes the configured properties for every event using
// the gaze samples the events were detected from. positions and
// timesteps must be the index-aligned series passed to the detector.
func (p *Processor) ProcessGaze(frame *Frame, positions []gaze.Point, timesteps []int64) ([]map[Property]float64, error) {
	if len(positions) != len(timesteps) {
		return nil, fmt.Errorf("%w: %d positions, %d timesteps", ErrLengthMismatch, len(positions), len(timesteps))
	}
	return p.process(frame, positions, timesteps)
}

func (p *Processor) process(frame *Frame, positions []gaze.Point, timesteps []int64) ([]map[Property]float64, error) {
	out := make([]map[Property]float64, frame.Len())
	for i, ev := range frame.Events() {
		row := make(map[Property]float64, len(p.properties))
		var xs, ys []float64
		if positions != nil {
			xs, ys = eventSamples(ev, positions, timesteps)
		}
		for _, prop := range p.properties {
			switch prop {
			case PropertyDuration:
				row[prop] = float64(ev.Duration())
			case PropertyCentroidX:
				row[prop] = stat.Mean(xs, nil)
			case PropertyCentroidY:
				row[prop] = stat.Mean(ys, nil)
			}
		}
		out[i] = row
	}
	return out, nil
}

// eventSamples collects the non-missing coordinates whose timestep
// falls within the event span.
func eventSamples(ev Event, positions []gaze.Point, timesteps []int64) (xs, ys []float64) {
	for i, ts := range timesteps {
		if ts < ev.Onset || ts > ev.Offset {
			continue
		}
		if positions[i].IsMissing() {
			continue
		}
		xs = append(xs, positions[i].X)
		ys = append(ys, positions[i].Y)
	}
	return xs, ys
}

// DurationStats returns the mean and standard deviation of the event
// durations, for summary reporting. An empty frame yields (0, 0); a
// single event yields its duration with stddev 0, since the sample
// standard deviation is undefined for n < 2.
func DurationStats(frame *Frame) (mean, stddev float64) {
	durations := frame.Durations()
	switch len(durations) {
	case 0:
		return 0, 0
	case 1:
		return float64(durations[0]), 0
	}
	vals := make([]float64, len(durations))
	for i, d := range durations {
		vals[i] = float64(d)
	}
	return stat.MeanStdDev(vals, nil)
}
