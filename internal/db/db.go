// Package db stores gaze recordings, their raw sample series and the
// events detected from them in a sqlite database.
package db

import (
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/Yanis750/pymovements/internal/events"
	"github.com/Yanis750/pymovements/internal/gaze"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the sqlite database at path.
// Callers are expected to run MigrateUp before using the schema.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return &DB{db}, nil
}

// Recording is one gaze capture session. Timesteps of its samples are
// stored in the units the tracker reported; SamplingRateHz is recorded
// for converting wall-time thresholds into sample counts.
type Recording struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SamplingRateHz float64 `json:"sampling_rate_hz"`
	CreatedAt      string  `json:"created_at"`
}

// CreateRecording inserts a new recording and returns it with a fresh
// UUID.
func (db *DB) CreateRecording(name string, samplingRateHz float64) (*Recording, error) {
	rec := &Recording{
		ID:             uuid.NewString(),
		Name:           name,
		SamplingRateHz: samplingRateHz,
	}
	_, err := db.Exec(
		`INSERT INTO recordings (id, name, sampling_rate_hz) VALUES (?, ?, ?)`,
		rec.ID, rec.Name, rec.SamplingRateHz,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	return rec, nil
}

// Recordings lists all recordings, newest first.
func (db *DB) Recordings() ([]Recording, error) {
	rows, err := db.Query(
		`SELECT id, name, sampling_rate_hz, created_at FROM recordings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		var r Recording
		var rate sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Name, &rate, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SamplingRateHz = rate.Float64
		recordings = append(recordings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recordings, nil
}

// Recording fetches a single recording by id.
func (db *DB) Recording(id string) (*Recording, error) {
	var r Recording
	var rate sql.NullFloat64
	err := db.QueryRow(
		`SELECT id, name, sampling_rate_hz, created_at FROM recordings WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &rate, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}
	r.SamplingRateHz = rate.Float64
	return &r, nil
}

// InsertSample stores one gaze sample. Missing coordinates (NaN) are
// stored as NULL.
func (db *DB) InsertSample(recordingID string, ts int64, p gaze.Point) error {
	_, err := db.Exec(
		`INSERT INTO gaze_samples (recording_id, ts, x, y) VALUES (?, ?, ?, ?)`,
		recordingID, ts, nullableCoord(p.X), nullableCoord(p.Y),
	)
	return err
}

// InsertSamples stores an index-aligned batch of samples in one
// transaction.
func (db *DB) InsertSamples(recordingID string, timesteps []int64, positions []gaze.Point) error {
	if len(timesteps) != len(positions) {
		return fmt.Errorf("%w: %d positions, %d timesteps",
			events.ErrLengthMismatch, len(positions), len(timesteps))
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO gaze_samples (recording_id, ts, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range positions {
		if _, err := stmt.Exec(recordingID, timesteps[i], nullableCoord(p.X), nullableCoord(p.Y)); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Samples loads the full sample series of a recording in timestep
// order. NULL coordinates come back as NaN.
func (db *DB) Samples(recordingID string) ([]gaze.Point, []int64, error) {
	rows, err := db.Query(
		`SELECT ts, x, y FROM gaze_samples WHERE recording_id = ? ORDER BY ts`, recordingID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var positions []gaze.Point
	var timesteps []int64
	for rows.Next() {
		var ts int64
		var x, y sql.NullFloat64
		if err := rows.Scan(&ts, &x, &y); err != nil {
			return nil, nil, err
		}
		positions = append(positions, gaze.Point{X: coordOrNaN(x), Y: coordOrNaN(y)})
		timesteps = append(timesteps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return positions, timesteps, nil
}

// EventRecord is a stored detection result row.
type EventRecord struct {
	RecordingID   string `json:"recording_id"`
	Name          string `json:"name"`
	Onset         int64  `json:"onset"`
	Offset        int64  `json:"offset"`
	Duration      int64  `json:"duration"`
	DetectorLabel string `json:"detector_label"`
}

// ReplaceEvents atomically replaces the detection results of one
// recording for the given detector label with the rows of frame.
// Re-running a detector therefore never duplicates events.
func (db *DB) ReplaceEvents(ctx context.Context, recordingID, detectorLabel string, frame *events.Frame) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM gaze_events WHERE recording_id = ? AND detector_label = ?`,
		recordingID, detectorLabel); err != nil {
		return fmt.Errorf("failed to delete prior events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gaze_events (recording_id, name, onset, "offset", duration, detector_label)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range frame.Events() {
		if _, err := stmt.ExecContext(ctx,
			recordingID, ev.Name, ev.Onset, ev.Offset, ev.Duration(), detectorLabel); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Events lists the stored events of a recording in onset order.
func (db *DB) Events(recordingID string) ([]EventRecord, error) {
	rows, err := db.Query(
		`SELECT recording_id, name, onset, "offset", duration, detector_label
		 FROM gaze_events WHERE recording_id = ? ORDER BY onset`, recordingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.RecordingID, &r.Name, &r.Onset, &r.Offset, &r.Duration, &r.DetectorLabel); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// RecordingsNeedingDetection finds recordings that have gaze samples
// but no events for the given detector label. These form the backlog
// for the event worker.
func (db *DB) RecordingsNeedingDetection(detectorLabel string) ([]string, error) {
	query := `
	SELECT r.id
	FROM recordings r
	WHERE EXISTS (
		SELECT 1 FROM gaze_samples s WHERE s.recording_id = r.id
	)
	AND NOT EXISTS (
		SELECT 1 FROM gaze_events e
		WHERE e.recording_id = r.id AND e.detector_label = ?
	)
	ORDER BY r.created_at
	`
	rows, err := db.Query(query, detectorLabel)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return ids, nil
}

func nullableCoord(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func coordOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// AttachAdminRoutes mounts debugging endpoints under /debug/: a
// tailSQL instance pointed at this database and an on-demand backup
// download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://gaze.db", db.DB, &tailsql.DBOptions{
		Label: "Gaze DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
