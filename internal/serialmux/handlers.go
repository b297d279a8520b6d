package serialmux

import (
	"encoding/json"
	"fmt"

	"github.com/Yanis750/pymovements/internal/db"
	"github.com/Yanis750/pymovements/internal/monitoring"
)

// CurrentState holds the latest status values received from the tracker
// and is intentionally package-level so admin routes or tests can inspect it.
var CurrentState map[string]any

// Ingestor stores parsed sample lines into one recording.
type Ingestor struct {
	DB          *db.DB
	RecordingID string

	// LogRawLines echoes every sample line to the log. Useful when
	// bringing up a new tracker, too noisy otherwise.
	LogRawLines bool
}

// NewIngestor creates an Ingestor writing into the given recording.
func NewIngestor(database *db.DB, recordingID string) *Ingestor {
	return &Ingestor{DB: database, RecordingID: recordingID}
}

// HandleGazeSample parses and stores a sample line.
func (in *Ingestor) HandleGazeSample(payload string) error {
	if in.LogRawLines {
		monitoring.Logf("Raw Sample Line: %+v", payload)
	}
	ts, pt, err := ParseSampleLine(payload)
	if err != nil {
		return err
	}
	return in.DB.InsertSample(in.RecordingID, ts, pt)
}

// HandleStatusResponse merges a JSON status blob into CurrentState.
func HandleStatusResponse(payload string) error {
	var statusValues map[string]any

	if err := json.Unmarshal([]byte(payload), &statusValues); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %v", err)
	}

	// update the current state with the new status values
	if CurrentState == nil {
		CurrentState = make(map[string]any)
	}
	for k, v := range statusValues {
		CurrentState[k] = v
	}

	monitoring.Logf("Status Line: %+v", payload)

	return nil
}

// HandleEvent classifies a line from the tracker and dispatches it.
func (in *Ingestor) HandleEvent(payload string) error {
	switch ClassifyPayload(payload) {
	case EventTypeGazeSample:
		if err := in.HandleGazeSample(payload); err != nil {
			return fmt.Errorf("failed to handle gaze sample: %v", err)
		}
	case EventTypeStatus:
		if err := HandleStatusResponse(payload); err != nil {
			return fmt.Errorf("failed to handle status response: %v", err)
		}
	default:
		monitoring.Logf("unknown event type: %s", payload)
	}
	return nil
}
