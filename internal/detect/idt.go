package detect

import (
	"errors"
	"fmt"

	"github.com/Yanis750/pymovements/internal/events"
	"github.com/Yanis750/pymovements/internal/gaze"
)

var (
	// ErrLengthMismatch reports timesteps whose length differs from
	// the position series.
	ErrLengthMismatch = errors.New("positions and timesteps must have the same length")

	// ErrNonUniformSampling reports a timestep series whose
	// consecutive differences are not constant.
	ErrNonUniformSampling = errors.New("interval between timesteps must be constant")

	// ErrValue reports a detection parameter outside its valid range.
	ErrValue = errors.New("invalid detection parameter")
)

// DefaultName is the event label used when Options.Name is empty.
const DefaultName = "fixation"

// Options configures the I-DT detector. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// MinimumDuration is the shortest admissible fixation, in the
	// units of the timestep series (sample counts when timesteps are
	// defaulted). Must be strictly positive and divisible by the
	// sampling interval.
	MinimumDuration int64

	// DispersionThreshold is the maximum bounding-box extent
	// (width + height) for a group of samples to count as a fixation.
	// Must be strictly positive.
	DispersionThreshold float64

	// IncludeNaN keeps a fixation that merely contains missing
	// samples as one event. When false such a window is split at
	// every missing-sample gap before the duration filter.
	IncludeNaN bool

	// Name labels the detected events.
	Name string

	// Split overrides the gap policy applied to candidates that
	// contain missing samples. Defaults to SplitAtGaps.
	Split SplitPolicy
}

// DefaultOptions returns the detector defaults from Salvucci and
// Goldberg: 100 time units minimum duration, dispersion threshold 1.0.
func DefaultOptions() Options {
	return Options{
		MinimumDuration:     100,
		DispersionThreshold: 1.0,
		Name:                DefaultName,
	}
}

// IDT identifies fixations by dispersion threshold. A moving window
// starts at the minimum event duration and grows while the dispersion
// of the samples it covers stays under the threshold; each group that
// also satisfies the minimum duration becomes one event.
//
// positions is the full 2D series with NaN marking missing samples.
// timesteps may be nil, in which case sample-indexed timesteps are
// assumed and MinimumDuration is a sample count. The scan is purely
// sequential and never revisits samples of an emitted window.
func IDT(positions []gaze.Point, timesteps []int64, opts Options) (*events.Frame, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: got 0 rows", gaze.ErrBadShape)
	}
	if timesteps == nil {
		timesteps = gaze.SampleTimesteps(len(positions))
	}
	if len(timesteps) != len(positions) {
		return nil, fmt.Errorf("%w: %d positions, %d timesteps",
			ErrLengthMismatch, len(positions), len(timesteps))
	}
	if opts.DispersionThreshold <= 0 {
		return nil, fmt.Errorf("%w: dispersion threshold must be greater than 0, got %v",
			ErrValue, opts.DispersionThreshold)
	}
	if opts.MinimumDuration <= 0 {
		return nil, fmt.Errorf("%w: minimum duration must be greater than 0, got %d",
			ErrValue, opts.MinimumDuration)
	}
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	split := opts.Split
	if split == nil {
		split = SplitAtGaps
	}

	msd, err := minimumSampleDuration(timesteps, opts.MinimumDuration)
	if err != nil {
		return nil, err
	}

	n := len(timesteps)
	var onsets, offsets []int64

	// Two-cursor scan. Either winStart advances by one (window
	// rejected at minimum size) or it jumps to winEnd (window
	// consumed), so the loop runs at most 2n iterations.
	winStart := 0
	winEnd := msd
	for winStart < n && winEnd <= n {
		// Re-extend the window to the minimum event duration. A
		// shorter tail cannot form a valid fixation.
		if winEnd < winStart+msd {
			winEnd = winStart + msd
		}
		if winEnd > n {
			winEnd = n
		}
		if winEnd-winStart < msd {
			break
		}

		if Dispersion(positions[winStart:winEnd]) > opts.DispersionThreshold {
			// Over threshold even at minimum size: slide the start
			// forward without emitting.
			winStart++
			continue
		}

		// Grow until dispersion reaches the threshold. The initial
		// acceptance above uses <=, growth uses <: a window sitting
		// exactly at the threshold is accepted but not grown.
		hitEnd := false
		for Dispersion(positions[winStart:winEnd]) < opts.DispersionThreshold {
			if winEnd == n {
				hitEnd = true
				break
			}
			winEnd++
		}

		// When growth stops at the threshold, winEnd sits one past
		// the sample that lifted dispersion to it, so the window
		// content ends at winEnd-1. When the data ran out below the
		// threshold the final sample belongs to the window.
		contentEnd := winEnd - 1
		if hitEnd {
			contentEnd = winEnd
		}

		if hasMissing(positions[winStart:contentEnd]) {
			candidate := make(Candidate, 0, contentEnd-winStart)
			for i := winStart; i < contentEnd; i++ {
				candidate = append(candidate, i)
			}
			candidates := StripMissing([]Candidate{candidate}, positions)
			if !opts.IncludeNaN {
				candidates = split(candidates, positions)
			}
			for _, c := range candidates {
				if len(c) < msd {
					continue
				}
				onsets = append(onsets, timesteps[c[0]])
				offsets = append(offsets, timesteps[c[len(c)-1]])
			}
		} else {
			onsets = append(onsets, timesteps[winStart])
			offsets = append(offsets, timesteps[winEnd-1])
		}

		// Consume the window; its samples are never revisited.
		winStart = winEnd
	}

	return events.NewFrame(name, onsets, offsets)
}

// minimumSampleDuration maps the duration threshold from timestep
// units into a sample count. The scan is defined purely in
// sample-index space, so the mapping must be exact: the sampling
// interval has to be constant and divide the minimum duration.
func minimumSampleDuration(timesteps []int64, minimumDuration int64) (int, error) {
	// A single sample carries no interval; use 1 so the scan
	// terminates without events instead of failing.
	interval := int64(1)
	if len(timesteps) >= 2 {
		interval = timesteps[1] - timesteps[0]
		for i := 2; i < len(timesteps); i++ {
			if timesteps[i]-timesteps[i-1] != interval {
				return 0, fmt.Errorf("%w: saw intervals %d and %d",
					ErrNonUniformSampling, interval, timesteps[i]-timesteps[i-1])
			}
		}
	}
	if interval <= 0 {
		return 0, fmt.Errorf("%w: interval between timesteps must be positive, got %d",
			ErrValue, interval)
	}
	if minimumDuration%interval != 0 {
		return 0, fmt.Errorf("%w: minimum duration %d is not divisible by the timestep interval %d",
			ErrValue, minimumDuration, interval)
	}
	msd := minimumDuration / interval
	if msd < 2 {
		return 0, fmt.Errorf("%w: minimum duration must span at least 2 samples, got %d",
			ErrValue, msd)
	}
	return int(msd), nil
}
