// Package api exposes the fixation detection service over HTTP.
package api

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Yanis750/pymovements/internal/config"
	"github.com/Yanis750/pymovements/internal/db"
	"github.com/Yanis750/pymovements/internal/detect"
	"github.com/Yanis750/pymovements/internal/events"
	"github.com/Yanis750/pymovements/internal/gaze"
	"github.com/Yanis750/pymovements/internal/httputil"
	"github.com/Yanis750/pymovements/internal/plot"
	"github.com/Yanis750/pymovements/internal/units"
	"github.com/Yanis750/pymovements/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	tuning *config.TuningConfig
}

func NewServer(database *db.DB, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = &config.TuningConfig{}
	}
	return &Server{
		db:     database,
		tuning: tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/api/detect", s.detectHandler)
	mux.HandleFunc("/api/recordings", s.recordingsHandler)
	mux.HandleFunc("GET /api/recordings/{id}/events", s.listRecordingEvents)
	mux.HandleFunc("POST /api/recordings/{id}/detect", s.detectRecording)
	mux.HandleFunc("GET /api/recordings/{id}/stats", s.recordingStats)
	mux.HandleFunc("GET /api/recordings/{id}/trace", s.traceChart)
	mux.HandleFunc("GET /api/recordings/{id}/events/chart", s.eventsChart)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

// detectRequest is the payload for stateless detection. Positions are
// (x, y) pairs; a null coordinate marks a missing sample. Timesteps
// default to 0..N-1 when omitted. The option fields override the
// configured tuning defaults.
type detectRequest struct {
	Positions           [][2]*float64 `json:"positions"`
	Timesteps           []float64     `json:"timesteps"`
	MinimumDuration     *int64        `json:"minimum_duration"`
	DispersionThreshold *float64      `json:"dispersion_threshold"`
	IncludeNaN          *bool         `json:"include_nan"`
	Name                *string       `json:"name"`
}

type detectResponse struct {
	Name    string  `json:"name"`
	Onsets  []int64 `json:"onsets"`
	Offsets []int64 `json:"offsets"`
	Count   int     `json:"count"`
}

func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req detectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	positions := make([]gaze.Point, len(req.Positions))
	for i, pair := range req.Positions {
		positions[i] = gaze.Point{X: coordValue(pair[0]), Y: coordValue(pair[1])}
	}

	var timesteps []int64
	var err error
	sampleSpace := req.Timesteps == nil
	if sampleSpace {
		timesteps = gaze.SampleTimesteps(len(positions))
	} else {
		timesteps, err = gaze.IntTimesteps(req.Timesteps)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	opts := s.tuning.DetectOptions()
	if sampleSpace && req.MinimumDuration == nil {
		// Defaulted timesteps are sample indices, so the configured
		// wall-time minimum has to be converted to a sample count.
		samples, err := units.DurationToSamples(float64(s.tuning.GetMinimumDurationMS()), units.MS, s.tuning.GetSamplingRateHz())
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("configured minimum duration is not usable with defaulted timesteps: %v", err))
			return
		}
		opts.MinimumDuration = samples
	}
	if req.MinimumDuration != nil {
		opts.MinimumDuration = *req.MinimumDuration
	}
	if req.DispersionThreshold != nil {
		opts.DispersionThreshold = *req.DispersionThreshold
	}
	if req.IncludeNaN != nil {
		opts.IncludeNaN = *req.IncludeNaN
	}
	if req.Name != nil {
		opts.Name = *req.Name
	}

	frame, err := detect.IDT(positions, timesteps, opts)
	if err != nil {
		if isValidationError(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("detection failed: %v", err))
		return
	}

	httputil.WriteJSONOK(w, detectResponse{
		Name:    opts.Name,
		Onsets:  frame.Onsets(),
		Offsets: frame.Offsets(),
		Count:   frame.Len(),
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, detect.ErrValue) ||
		errors.Is(err, detect.ErrLengthMismatch) ||
		errors.Is(err, detect.ErrNonUniformSampling) ||
		errors.Is(err, gaze.ErrBadShape) ||
		errors.Is(err, gaze.ErrNonIntegerTimesteps)
}

func coordValue(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

type createRecordingRequest struct {
	Name           string  `json:"name"`
	SamplingRateHz float64 `json:"sampling_rate_hz"`
}

func (s *Server) recordingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRecordings(w, r)
	case http.MethodPost:
		s.createRecording(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	recordings, err := s.db.Recordings()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list recordings: %v", err))
		return
	}
	httputil.WriteJSONOK(w, recordings)
}

func (s *Server) createRecording(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	var req createRecordingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	if req.SamplingRateHz == 0 {
		req.SamplingRateHz = s.tuning.GetSamplingRateHz()
	}
	rec, err := s.db.CreateRecording(req.Name, req.SamplingRateHz)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to create recording: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (s *Server) listRecordingEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := s.db.Recording(id); err != nil {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return
	}
	evs, err := s.db.Events(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve events: %v", err))
		return
	}
	httputil.WriteJSONOK(w, evs)
}

func (s *Server) detectRecording(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := s.db.Recording(id); err != nil {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return
	}

	worker := db.NewEventWorker(s.db, s.tuning.DetectOptions(), s.tuning.GetDetectorLabel())
	if err := worker.RunRecording(r.Context(), id); err != nil {
		if isValidationError(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("detection failed: %v", err))
		return
	}

	evs, err := s.db.Events(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve events: %v", err))
		return
	}
	httputil.WriteJSONOK(w, evs)
}

type recordingStatsResponse struct {
	RecordingID    string               `json:"recording_id"`
	EventCount     int                  `json:"event_count"`
	MeanDuration   float64              `json:"mean_duration"`
	StddevDuration float64              `json:"stddev_duration"`
	Events         []map[string]float64 `json:"events"`
}

func (s *Server) recordingStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id := r.PathValue("id")
	frame, positions, timesteps, err := s.loadRecording(id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	processor, err := events.NewProcessor(events.PropertyDuration, events.PropertyCentroidX, events.PropertyCentroidY)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	rows, err := processor.ProcessGaze(frame, positions, timesteps)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute event properties: %v", err))
		return
	}

	mean, stddev := events.DurationStats(frame)
	resp := recordingStatsResponse{
		RecordingID:    id,
		EventCount:     frame.Len(),
		MeanDuration:   mean,
		StddevDuration: stddev,
		Events:         make([]map[string]float64, len(rows)),
	}
	for i, row := range rows {
		out := make(map[string]float64, len(row))
		for prop, val := range row {
			// A centroid over a span with no valid samples is NaN,
			// which encoding/json rejects. Omit such values.
			if math.IsNaN(val) || math.IsInf(val, 0) {
				continue
			}
			out[string(prop)] = val
		}
		resp.Events[i] = out
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) traceChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := s.db.Recording(id); err != nil {
		httputil.NotFound(w, fmt.Sprintf("recording %s not found", id))
		return
	}
	positions, timesteps, err := s.db.Samples(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	if len(positions) == 0 {
		httputil.NotFound(w, "recording has no samples")
		return
	}

	topts := plot.TraceOptions{Title: fmt.Sprintf("Gaze Trace %s", id)}
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			topts.MaxPoints = v
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := plot.RenderTraceHTML(w, timesteps, positions, topts); err != nil {
		log.Printf("failed to render trace chart: %v", err)
	}
}

func (s *Server) eventsChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	id := r.PathValue("id")
	frame, positions, timesteps, err := s.loadRecording(id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Events %s", id)
	if err := plot.RenderEventsHTML(w, timesteps, positions, frame, title); err != nil {
		log.Printf("failed to render events chart: %v", err)
	}
}

// loadRecording returns the stored events of a recording as a frame
// together with its sample series.
func (s *Server) loadRecording(id string) (*events.Frame, []gaze.Point, []int64, error) {
	if _, err := s.db.Recording(id); err != nil {
		return nil, nil, nil, fmt.Errorf("recording %s not found", id)
	}
	positions, timesteps, err := s.db.Samples(id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load samples for %s", id)
	}
	records, err := s.db.Events(id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load events for %s", id)
	}
	evs := make([]events.Event, len(records))
	for i, rec := range records {
		evs[i] = events.Event{Name: rec.Name, Onset: rec.Onset, Offset: rec.Offset}
	}
	frame := events.NewFrameFromEvents(evs)
	return frame, positions, timesteps, nil
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cfg := map[string]interface{}{
		"minimum_duration_ms":  s.tuning.GetMinimumDurationMS(),
		"dispersion_threshold": s.tuning.GetDispersionThreshold(),
		"include_nan":          s.tuning.GetIncludeNaN(),
		"event_name":           s.tuning.GetEventName(),
		"sampling_rate_hz":     s.tuning.GetSamplingRateHz(),
		"detector_label":       s.tuning.GetDetectorLabel(),
	}
	httputil.WriteJSONOK(w, cfg)
}
