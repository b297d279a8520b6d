package serialmux

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Yanis750/pymovements/internal/gaze"
)

const (
	EventTypeGazeSample = "gaze_sample"
	EventTypeStatus     = "status"
	EventTypeUnknown    = "unknown"
)

// ClassifyPayload inspects a payload string and returns a simple event type
// token. Trackers in CSV streaming mode emit "ts,x,y" sample lines and JSON
// status blobs in response to commands.
func ClassifyPayload(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "{") {
		return EventTypeStatus
	}
	if _, _, err := ParseSampleLine(trimmed); err == nil {
		return EventTypeGazeSample
	}
	return EventTypeUnknown
}

// ParseSampleLine parses a "ts,x,y" sample line. The coordinate fields may be
// "nan" (any case) or empty for blink samples; the timestep must be a whole
// number.
func ParseSampleLine(line string) (int64, gaze.Point, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 {
		return 0, gaze.Point{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return 0, gaze.Point{}, fmt.Errorf("invalid timestep %q: %w", fields[0], err)
	}

	x, err := parseCoord(fields[1])
	if err != nil {
		return 0, gaze.Point{}, err
	}
	y, err := parseCoord(fields[2])
	if err != nil {
		return 0, gaze.Point{}, err
	}

	return ts, gaze.Point{X: x, Y: y}, nil
}

func parseCoord(field string) (float64, error) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q: %w", field, err)
	}
	return v, nil
}
