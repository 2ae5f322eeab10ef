package sampleindex

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/coalview/pkg/metrics"
)

// DefaultChunkSize is the scan chunk size used when Options.ChunkSize is 0.
const DefaultChunkSize = 1 << 20

// Progress reports best-effort indexing progress. EstimatedTotal is derived
// from the average line length seen so far and has no correctness role.
type Progress struct {
	Lines          int
	BytesScanned   int64
	EstimatedTotal int
}

// Options configures Build.
type Options struct {
	// SkipFirstLine drops line 0 from the index. Used when the first line of
	// a sample file is a non-sample header.
	SkipFirstLine bool
	// ChunkSize is the scan chunk size in bytes; 0 means DefaultChunkSize.
	ChunkSize int
	// Progress, when non-nil, is called once per scanned chunk.
	Progress func(Progress)
}

// Index is an ordered list of line-start offsets over a ByteSource. It is
// write-once at Build and read-many afterwards.
type Index struct {
	source  ByteSource
	offsets []int64
}

// Build scans the source in fixed-size chunks and records the start offset of
// every line. The context is checked once per chunk, so a host event loop is
// never blocked for more than one chunk's processing time. Cancelling
// discards the partial build. An empty source yields an empty index; the only
// failure mode is a source read error.
func Build(ctx context.Context, src ByteSource, opts Options) (*Index, error) {
	defer metrics.Timer(metrics.IndexBuild)()

	chunk := int64(opts.ChunkSize)
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	size := src.Len()
	idx := &Index{source: src}
	if size == 0 {
		return idx, nil
	}

	// Line terminators are single '\n' bytes, so a terminator can never
	// straddle a chunk boundary; scanning each chunk independently neither
	// misses nor double-counts one.
	offsets := []int64{0}
	for pos := int64(0); pos < size; pos += chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := pos + chunk
		if end > size {
			end = size
		}
		buf, err := src.Slice(pos, end)
		if err != nil {
			return nil, fmt.Errorf("indexing at offset %d: %w", pos, err)
		}
		for rel := 0; ; {
			nl := bytes.IndexByte(buf[rel:], '\n')
			if nl < 0 {
				break
			}
			rel += nl + 1
			offsets = append(offsets, pos+int64(rel))
		}
		if opts.Progress != nil {
			opts.Progress(progressAt(offsets, end, size))
		}
	}

	// A trailing terminator would start a line past end-of-data.
	if offsets[len(offsets)-1] >= size {
		offsets = offsets[:len(offsets)-1]
	}
	if opts.SkipFirstLine && len(offsets) > 0 {
		offsets = offsets[1:]
	}
	idx.offsets = offsets
	return idx, nil
}

func progressAt(offsets []int64, scanned, size int64) Progress {
	p := Progress{Lines: len(offsets), BytesScanned: scanned}
	if scanned > 0 {
		avg := float64(scanned) / float64(len(offsets))
		p.EstimatedTotal = int(float64(size) / avg)
	}
	return p
}

// FromOffsets revives an index from previously computed offsets, e.g. a
// cache hit. The offsets must be strictly increasing and in range for src.
func FromOffsets(src ByteSource, offsets []int64) *Index {
	return &Index{source: src, offsets: offsets}
}

// Count returns the number of indexed lines.
func (x *Index) Count() int { return len(x.offsets) }

// Offsets returns the raw line-start offsets. The slice is shared; callers
// must not modify it.
func (x *Index) Offsets() []int64 { return x.offsets }

// Line returns the trimmed text of line i. Fails for i outside [0, Count).
func (x *Index) Line(i int) (string, error) {
	defer metrics.Timer(metrics.LineRetrieval)()
	if i < 0 || i >= len(x.offsets) {
		return "", fmt.Errorf("line %d out of range [0,%d)", i, len(x.offsets))
	}
	start := x.offsets[i]
	end := x.source.Len()
	if i+1 < len(x.offsets) {
		end = x.offsets[i+1]
	}
	text, err := x.source.Text(start, end)
	if err != nil {
		return "", fmt.Errorf("reading line %d: %w", i, err)
	}
	return strings.TrimSpace(text), nil
}
