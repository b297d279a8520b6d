// Command backfill re-runs fixation detection over stored recordings.
// Useful after changing the tuning parameters or the detector itself:
// existing events for the given label are replaced with fresh ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Yanis750/pymovements/internal/config"
	"github.com/Yanis750/pymovements/internal/db"
)

func main() {
	var dbPath string
	var configPath string
	var recordingID string
	var label string
	var all bool

	flag.StringVar(&dbPath, "db", "gaze_data.db", "path to sqlite db")
	flag.StringVar(&configPath, "config", "", "path to detection tuning JSON")
	flag.StringVar(&recordingID, "recording", "", "backfill a single recording by id")
	flag.StringVar(&label, "label", "", "detector label to write events under (overrides config)")
	flag.BoolVar(&all, "all", false, "re-detect every recording, replacing existing events")
	flag.Parse()

	if recordingID == "" && !all {
		log.Fatalf("either -recording or -all must be provided")
	}

	tuning := config.EmptyTuningConfig()
	if configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
	}
	if label == "" {
		label = tuning.GetDetectorLabel()
	}

	dbConn, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.MigrateUp(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	w := db.NewEventWorker(dbConn, tuning.DetectOptions(), label)

	ctx := context.Background()
	if recordingID != "" {
		fmt.Printf("backfilling recording %s (label %s)\n", recordingID, label)
		if err := w.RunRecording(ctx, recordingID); err != nil {
			log.Fatalf("backfill failed: %v", err)
		}
	} else {
		fmt.Printf("backfilling all recordings (label %s)\n", label)
		if err := w.RunFullHistory(ctx); err != nil {
			log.Fatalf("backfill failed: %v", err)
		}
	}

	fmt.Println("backfill complete")
}
