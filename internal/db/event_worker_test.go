package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Yanis750/pymovements/internal/detect"
	"github.com/Yanis750/pymovements/internal/gaze"
	"github.com/Yanis750/pymovements/internal/timeutil"
)

// insertFixationSeries stores a series with a steady cluster, a saccade,
// and a second steady cluster. With MinimumDuration 3 and threshold 1.0
// the detector finds two fixations.
func insertFixationSeries(t *testing.T, db *DB, recordingID string) {
	t.Helper()

	xs := []float64{10.0, 10.1, 10.2, 10.1, 40.0, 55.0, 70.1, 70.0, 70.2, 70.1}
	ys := []float64{5.0, 5.1, 5.0, 5.2, 20.0, 30.0, 42.0, 42.1, 42.0, 42.2}

	for i := range xs {
		pt := gaze.Point{X: xs[i], Y: ys[i]}
		if err := db.InsertSample(recordingID, int64(i), pt); err != nil {
			t.Fatalf("InsertSample: %v", err)
		}
	}
}

func workerOptions() detect.Options {
	opts := detect.DefaultOptions()
	opts.MinimumDuration = 3
	opts.DispersionThreshold = 1.0
	return opts
}

func TestRunRecording(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecording("subject-1", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	insertFixationSeries(t, db, rec.ID)

	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	if err := worker.RunRecording(ctx, rec.ID); err != nil {
		t.Fatalf("RunRecording: %v", err)
	}

	got, err := db.Events(rec.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Onset != 0 || got[0].Offset != 4 {
		t.Errorf("first event = [%d, %d], want [0, 4]", got[0].Onset, got[0].Offset)
	}
	if got[1].Onset != 6 || got[1].Offset != 9 {
		t.Errorf("second event = [%d, %d], want [6, 9]", got[1].Onset, got[1].Offset)
	}
	for _, ev := range got {
		if ev.Name != "fixation" {
			t.Errorf("event name = %q, want fixation", ev.Name)
		}
		if ev.DetectorLabel != "idt-v1" {
			t.Errorf("detector label = %q, want idt-v1", ev.DetectorLabel)
		}
	}
}

func TestRunRecordingSkipsEmptySeries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecording("subject-empty", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	if err := worker.RunRecording(ctx, rec.ID); err != nil {
		t.Fatalf("RunRecording on empty recording: %v", err)
	}

	got, err := db.Events(rec.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d events for empty recording, want 0", len(got))
	}
}

func TestRunRecordingHandlesMissingSamples(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecording("subject-nan", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	// A blink in the middle of an otherwise steady cluster.
	for i := 0; i < 8; i++ {
		pt := gaze.Point{X: 10.0, Y: 5.0}
		if i == 4 {
			pt = gaze.Point{X: math.NaN(), Y: math.NaN()}
		}
		if err := db.InsertSample(rec.ID, int64(i), pt); err != nil {
			t.Fatalf("InsertSample: %v", err)
		}
	}

	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	if err := worker.RunRecording(ctx, rec.ID); err != nil {
		t.Fatalf("RunRecording: %v", err)
	}

	got, err := db.Events(rec.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	// The blink splits the window into [0,3] and [5,7].
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Onset != 0 || got[0].Offset != 3 {
		t.Errorf("first event = [%d, %d], want [0, 3]", got[0].Onset, got[0].Offset)
	}
	if got[1].Onset != 5 || got[1].Offset != 7 {
		t.Errorf("second event = [%d, %d], want [5, 7]", got[1].Onset, got[1].Offset)
	}
}

func TestRunOnceProcessesBacklogOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pending, err := db.CreateRecording("pending", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	insertFixationSeries(t, db, pending.ID)

	done, err := db.CreateRecording("done", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	insertFixationSeries(t, db, done.ID)

	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	if err := worker.RunRecording(ctx, done.ID); err != nil {
		t.Fatalf("RunRecording: %v", err)
	}
	doneBefore, err := db.Events(done.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	if err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	pendingEvents, err := db.Events(pending.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(pendingEvents) != 2 {
		t.Fatalf("pending recording: got %d events, want 2", len(pendingEvents))
	}
	doneAfter, err := db.Events(done.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(doneAfter) != len(doneBefore) {
		t.Errorf("done recording reprocessed: %d events before, %d after", len(doneBefore), len(doneAfter))
	}
}

func TestRunFullHistoryRedetects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.CreateRecording("subject-redetect", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	insertFixationSeries(t, db, rec.ID)

	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	if err := worker.RunFullHistory(ctx); err != nil {
		t.Fatalf("RunFullHistory: %v", err)
	}
	first, err := db.Events(rec.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d events, want 2", len(first))
	}

	// A looser threshold merges the whole series into one event.
	loose := workerOptions()
	loose.DispersionThreshold = 200.0
	worker.Options = loose
	if err := worker.RunFullHistory(ctx); err != nil {
		t.Fatalf("RunFullHistory: %v", err)
	}
	second, err := db.Events(rec.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("after re-detection got %d events, want 1", len(second))
	}
	if second[0].Onset != 0 || second[0].Offset != 9 {
		t.Errorf("merged event = [%d, %d], want [0, 9]", second[0].Onset, second[0].Offset)
	}
}

func TestWorkerStartStop(t *testing.T) {
	db := newTestDB(t)

	rec, err := db.CreateRecording("subject-ticker", 1000)
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	insertFixationSeries(t, db, rec.ID)

	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	worker := NewEventWorker(db, workerOptions(), "idt-v1")
	worker.Clock = clock
	worker.Interval = time.Minute

	worker.Start()
	defer worker.Stop()

	deadline := time.After(2 * time.Second)
	for {
		// Advance repeatedly: the worker goroutine may not have
		// registered its ticker before the first call.
		clock.Advance(time.Minute)

		got, err := db.Events(rec.ID)
		if err != nil {
			t.Fatalf("Events: %v", err)
		}
		if len(got) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not process recording: got %d events", len(got))
		case <-time.After(10 * time.Millisecond):
		}
	}
}
