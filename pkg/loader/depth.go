package loader

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/coalview/pkg/metrics"
	"github.com/vanderheijden86/coalview/pkg/newick"
	"github.com/vanderheijden86/coalview/pkg/sampleindex"
)

// DepthEstimate is a shared time-scale depth derived from a subset of
// samples, so that every tree of a browsing session fits the same view.
type DepthEstimate struct {
	// Depth is the suggested total view depth.
	Depth float64
	// MaxHeight is the tallest sampled tree.
	MaxHeight float64
	// Sampled is the number of samples that parsed and contributed.
	Sampled int
}

// depthHeadroom stretches the quantile estimate so the scale rarely clips a
// tree that was not in the sampled subset.
const depthHeadroom = 1.25

// EstimateDepth samples up to n trees evenly spaced over the post-burn-in
// range of f and derives a view depth: the 0.95 height quantile with
// headroom, floored at the tallest sampled tree. Retrieval runs as one
// bounded batch; unreadable samples are skipped. Fails only when no sample
// in the subset parses or on a read failure.
func EstimateDepth(ctx context.Context, f *SampleFile, n int, burnIn float64) (DepthEstimate, error) {
	defer metrics.Timer(metrics.DepthEstimate)()

	count := f.Count()
	if count == 0 {
		return DepthEstimate{}, fmt.Errorf("no samples in %s", f.Path)
	}
	if burnIn < 0 || burnIn >= 1 {
		burnIn = 0
	}
	first := int(float64(count) * burnIn)
	if n <= 0 {
		n = 100
	}
	span := count - first
	if n > span {
		n = span
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = first + i*span/n
	}

	lines, err := f.Index.Batch(ctx, indices, sampleindex.DefaultBatchLimit)
	if err != nil {
		return DepthEstimate{}, fmt.Errorf("sampling %s for depth: %w", f.Path, err)
	}

	heights := make([]float64, 0, len(lines))
	for _, line := range lines {
		if t := newick.ParseSpecies(line); t != nil {
			heights = append(heights, t.Height())
		}
	}
	if len(heights) == 0 {
		return DepthEstimate{}, fmt.Errorf("no readable samples in %s", f.Path)
	}

	max := floats.Max(heights)
	sort.Float64s(heights)
	q := stat.Quantile(0.95, stat.Empirical, heights, nil)

	depth := q * depthHeadroom
	if depth < max {
		depth = max
	}
	return DepthEstimate{Depth: depth, MaxHeight: max, Sampled: len(heights)}, nil
}
