// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Yanis750/pymovements/internal/gaze"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// StepSeries builds a gaze trace whose position jumps between the given
// cluster centers, holding each for samplesPer samples. Timesteps are
// sequential from zero.
func StepSeries(centers []gaze.Point, samplesPer int) ([]gaze.Point, []int64) {
	points := make([]gaze.Point, 0, len(centers)*samplesPer)
	for _, c := range centers {
		for i := 0; i < samplesPer; i++ {
			points = append(points, c)
		}
	}
	timesteps := make([]int64, len(points))
	for i := range timesteps {
		timesteps[i] = int64(i)
	}
	return points, timesteps
}

// WithMissing returns a copy of points with the samples at the given
// indices replaced by NaN coordinates.
func WithMissing(points []gaze.Point, indices ...int) []gaze.Point {
	out := make([]gaze.Point, len(points))
	copy(out, points)
	for _, i := range indices {
		out[i] = gaze.Point{X: math.NaN(), Y: math.NaN()}
	}
	return out
}
