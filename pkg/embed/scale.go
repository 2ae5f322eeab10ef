// Package embed computes drawing coordinates for sampled trees: horizontal
// bands for species-tree "tubes" and per-node/per-edge geometry for gene
// trees overlaid on their ancestral populations. It emits only coordinates
// and primitives; rendering to an actual surface lives in pkg/export.
package embed

import "math"

// Point is a 2D coordinate on the drawing surface. Y grows downward, so
// older times sit higher on the surface.
type Point struct {
	X float64
	Y float64
}

// Polyline is a stroked sequence of points.
type Polyline []Point

// TimeScale maps a time (age before the present) to a vertical coordinate.
// TipY is the position of time zero; PerUnit is the vertical distance per
// unit of time. The scale is shared across all trees of one view so that
// samples are comparable.
type TimeScale struct {
	TipY    float64
	PerUnit float64
}

// Y returns the vertical coordinate of the given age.
func (s TimeScale) Y(age float64) float64 { return s.TipY - age*s.PerUnit }

// NiceStep returns the scale-bar step for a view of the given depth: 0.4×
// the depth snapped to the nearest 1, 2 or 5 times a power of ten. Returns 0
// for a non-positive depth.
func NiceStep(maxDepth float64) float64 {
	target := 0.4 * maxDepth
	if target <= 0 || math.IsInf(target, 0) || math.IsNaN(target) {
		return 0
	}
	exp := math.Floor(math.Log10(target))
	base := math.Pow(10, exp)
	best := base
	for _, mult := range []float64{1, 2, 5, 10} {
		cand := mult * base
		if math.Abs(cand-target) < math.Abs(best-target) {
			best = cand
		}
	}
	return best
}

// Ticks returns the scale-bar tick ages for a view of the given depth, from
// zero up to the deepest multiple of NiceStep not exceeding depth.
func Ticks(maxDepth float64) []float64 {
	step := NiceStep(maxDepth)
	if step <= 0 {
		return nil
	}
	var ticks []float64
	for t := 0.0; t <= maxDepth+step*1e-9; t += step {
		ticks = append(ticks, t)
	}
	return ticks
}
