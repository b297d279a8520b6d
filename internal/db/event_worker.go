package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Yanis750/pymovements/internal/detect"
	"github.com/Yanis750/pymovements/internal/monitoring"
	"github.com/Yanis750/pymovements/internal/timeutil"
)

// EventWorker periodically scans for recordings that have gaze samples
// but no detection results yet and runs the fixation detector over
// them. Results are upserted per detector label, so re-runs with a new
// label never clobber older results and re-runs with the same label
// replace them.
type EventWorker struct {
	DB *DB
	// Options configure the I-DT detector applied to each recording.
	Options       detect.Options
	DetectorLabel string
	Interval      time.Duration // how often to scan for backlog (e.g. 15m)
	Clock         timeutil.Clock
	StopChan      chan struct{}
}

// NewEventWorker returns a worker with the default scan interval.
func NewEventWorker(db *DB, opts detect.Options, detectorLabel string) *EventWorker {
	return &EventWorker{
		DB:            db,
		Options:       opts,
		DetectorLabel: detectorLabel,
		Interval:      15 * time.Minute,
		Clock:         timeutil.RealClock{},
		StopChan:      make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine.
func (w *EventWorker) Start() {
	go func() {
		ticker := w.Clock.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if err := w.RunOnce(context.Background()); err != nil {
					monitoring.Logf("event worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *EventWorker) Stop() {
	close(w.StopChan)
}

// RunOnce detects events for every recording in the backlog. Failures
// on individual recordings are logged and do not stop the run; the
// first error is returned after the full pass.
func (w *EventWorker) RunOnce(ctx context.Context) error {
	start := w.Clock.Now()

	backlog, err := w.DB.RecordingsNeedingDetection(w.DetectorLabel)
	if err != nil {
		return fmt.Errorf("failed to find detection backlog: %w", err)
	}
	if len(backlog) == 0 {
		return nil
	}

	var firstErr error
	detected := 0
	for _, id := range backlog {
		if err := w.RunRecording(ctx, id); err != nil {
			monitoring.Logf("event worker: recording %s failed: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		detected++
	}

	monitoring.Logf("event worker: processed %d/%d recordings in %v",
		detected, len(backlog), w.Clock.Since(start))
	return firstErr
}

// RunFullHistory re-runs detection over every recording that has
// samples, replacing any prior results for this detector label.
func (w *EventWorker) RunFullHistory(ctx context.Context) error {
	recordings, err := w.DB.Recordings()
	if err != nil {
		return fmt.Errorf("failed to list recordings: %w", err)
	}

	var firstErr error
	for _, rec := range recordings {
		if err := w.RunRecording(ctx, rec.ID); err != nil {
			monitoring.Logf("event worker: recording %s failed: %v", rec.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RunRecording loads the sample series of one recording, runs the
// detector and replaces the stored events for this detector label.
// A recording without samples is skipped silently.
func (w *EventWorker) RunRecording(ctx context.Context, recordingID string) error {
	positions, timesteps, err := w.DB.Samples(recordingID)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	if len(positions) == 0 {
		monitoring.Logf("event worker: recording %s has no samples, skipping", recordingID)
		return nil
	}

	frame, err := detect.IDT(positions, timesteps, w.Options)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if err := w.DB.ReplaceEvents(ctx, recordingID, w.DetectorLabel, frame); err != nil {
		return fmt.Errorf("failed to store events: %w", err)
	}
	return nil
}
