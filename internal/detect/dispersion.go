// Package detect implements fixation detection over gaze position
// series using the dispersion-threshold (I-DT) algorithm of Salvucci
// and Goldberg (2000).
package detect

import (
	"math"

	"github.com/Yanis750/pymovements/internal/gaze"
)

// Dispersion computes the spatial spread of a group of consecutive 2D
// points as the sum of the x and y peak-to-peak extents. Missing
// coordinates (NaN) are ignored when computing the extents; if a
// coordinate column is entirely missing the result is NaN, which makes
// every threshold comparison false. Callers that cannot tolerate that
// must guarantee at least one valid sample per column.
func Dispersion(points []gaze.Point) float64 {
	minX, maxX := math.NaN(), math.NaN()
	minY, maxY := math.NaN(), math.NaN()

	for _, p := range points {
		if !math.IsNaN(p.X) {
			if math.IsNaN(minX) || p.X < minX {
				minX = p.X
			}
			if math.IsNaN(maxX) || p.X > maxX {
				maxX = p.X
			}
		}
		if !math.IsNaN(p.Y) {
			if math.IsNaN(minY) || p.Y < minY {
				minY = p.Y
			}
			if math.IsNaN(maxY) || p.Y > maxY {
				maxY = p.Y
			}
		}
	}

	return (maxX - minX) + (maxY - minY)
}
