package geom

import (
	"math"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// Point is a 2-D coordinate pair, grid metres or degrees depending on the
// reference system in use.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the midpoint of the segment between two points.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// ClosestPoint returns the candidate nearest to p and its index. Ties
// keep the first occurrence.
func ClosestPoint(p Point, candidates []Point) (Point, int, error) {
	if len(candidates) == 0 {
		return Point{}, -1, errors.New(errors.ErrorTypeEmptyCandidates, "no candidate points")
	}

	best := 0
	bestDist := Distance(p, candidates[0])
	for i, c := range candidates[1:] {
		if d := Distance(p, c); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return candidates[best], best, nil
}
