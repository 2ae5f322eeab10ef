package sampleindex

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit bounds how many line retrievals run concurrently in
// Batch when the caller passes limit <= 0.
const DefaultBatchLimit = 8

// Batch retrieves many lines concurrently, at most limit at a time, and
// returns them in the order of indices. The index is immutable and the source
// read-only, so the retrievals need no mutual exclusion. The first failing
// retrieval cancels the rest.
func (x *Index) Batch(ctx context.Context, indices []int, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	lines := make([]string, len(indices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for pos, idx := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := x.Line(idx)
			if err != nil {
				return err
			}
			lines[pos] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}
