// Package gaze provides the sample types shared by the detection,
// processing and storage layers. A gaze recording is an ordered series
// of 2D positions with index-aligned integer timesteps; missing or
// corrupt samples carry NaN coordinates.
package gaze

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBadShape reports position input that is not shaped (N, 2).
	ErrBadShape = errors.New("positions must have shape (N, 2)")

	// ErrNonIntegerTimesteps reports timestep values with a nonzero
	// fractional part.
	ErrNonIntegerTimesteps = errors.New("timesteps must be of type int")
)

// Point is a single 2D gaze position. A missing sample is encoded as
// NaN in either coordinate.
type Point struct {
	X float64
	Y float64
}

// IsMissing reports whether the sample is missing or corrupt.
func (p Point) IsMissing() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// PointsFromRows converts row-oriented position data into a Point
// series. Every row must have exactly two columns and at least one row
// must be present.
func PointsFromRows(rows [][]float64) ([]Point, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: got 0 rows", ErrBadShape)
	}
	points := make([]Point, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrBadShape, i, len(row))
		}
		points[i] = Point{X: row[0], Y: row[1]}
	}
	return points, nil
}

// PointsFromFlat converts an interleaved x0,y0,x1,y1,... series into
// Points. The slice length must be even and non-zero.
func PointsFromFlat(flat []float64) ([]Point, error) {
	if len(flat) == 0 || len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: flat series of length %d is not reshapable", ErrBadShape, len(flat))
	}
	points := make([]Point, len(flat)/2)
	for i := range points {
		points[i] = Point{X: flat[2*i], Y: flat[2*i+1]}
	}
	return points, nil
}

// IntTimesteps converts float-sourced timesteps (e.g. parsed from CSV
// or JSON) to integers. Values with a nonzero fractional part are
// rejected rather than truncated.
func IntTimesteps(timesteps []float64) ([]int64, error) {
	out := make([]int64, len(timesteps))
	for i, ts := range timesteps {
		ti := int64(ts)
		if ts != float64(ti) {
			return nil, fmt.Errorf("%w: value %v at index %d", ErrNonIntegerTimesteps, ts, i)
		}
		out[i] = ti
	}
	return out, nil
}

// SampleTimesteps returns the default sample-indexed timesteps
// 0, 1, ..., n-1 used when a recording carries no clock.
func SampleTimesteps(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}
