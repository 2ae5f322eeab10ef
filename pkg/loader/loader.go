// Package loader wires sources, indexes and parsers together: it opens a
// sample file, builds (or revives from cache) its line index, and serves
// parsed trees by sample number. Only genuine I/O failures surface as
// errors; a sample that fails to parse is reported as an unreadable sample,
// never as a failure of the file.
package loader

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vanderheijden86/coalview/pkg/debug"
	"github.com/vanderheijden86/coalview/pkg/metrics"
	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/newick"
	"github.com/vanderheijden86/coalview/pkg/sampleindex"
)

// OpenOptions configures Open.
type OpenOptions struct {
	// SkipFirstLine drops the first line of the file (non-sample header).
	SkipFirstLine bool
	// ChunkSize is the index scan chunk size; 0 means the default.
	ChunkSize int
	// Cache, when non-nil, is consulted before scanning and updated after.
	Cache *sampleindex.Cache
	// Progress receives best-effort indexing progress.
	Progress func(sampleindex.Progress)
	// Logger, when non-nil, receives structured progress/diagnostic logs.
	Logger *log.Logger
}

// SampleFile is an open, indexed sample file.
type SampleFile struct {
	Path   string
	Source *sampleindex.FileSource
	Index  *sampleindex.Index
}

// Open opens path and indexes its lines. On a cache hit the scan is skipped
// entirely; on a miss the freshly built offsets are stored back, best-effort.
func Open(ctx context.Context, path string, opts OpenOptions) (*SampleFile, error) {
	src, err := sampleindex.OpenFile(path)
	if err != nil {
		return nil, err
	}

	if offsets, ok := opts.Cache.Load(path, opts.SkipFirstLine); ok {
		if opts.Logger != nil {
			opts.Logger.Debug("line index revived from cache", "path", path, "lines", len(offsets))
		}
		return &SampleFile{Path: path, Source: src, Index: sampleindex.FromOffsets(src, offsets)}, nil
	}

	idx, err := sampleindex.Build(ctx, src, sampleindex.Options{
		SkipFirstLine: opts.SkipFirstLine,
		ChunkSize:     opts.ChunkSize,
		Progress:      opts.Progress,
	})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	if opts.Logger != nil {
		opts.Logger.Info("sample file indexed", "path", path, "lines", idx.Count())
	}

	if err := opts.Cache.Store(path, opts.SkipFirstLine, idx.Offsets()); err != nil {
		// The cache is an optimization; a store failure never fails Open.
		debug.Log("offset cache store failed for %s: %v", path, err)
	}

	return &SampleFile{Path: path, Source: src, Index: idx}, nil
}

// Close releases the underlying file.
func (f *SampleFile) Close() error { return f.Source.Close() }

// Count returns the number of samples in the file.
func (f *SampleFile) Count() int { return f.Index.Count() }

// SpeciesTree retrieves and parses sample i as a species tree. The error is
// non-nil only for I/O failures; a nil tree with a nil error means the
// sample line did not parse ("sample unreadable").
func (f *SampleFile) SpeciesTree(i int) (*model.Tree, error) {
	defer metrics.Timer(metrics.ParseSpecies)()
	line, err := f.Index.Line(i)
	if err != nil {
		return nil, err
	}
	return newick.ParseSpecies(line), nil
}

// GeneTree retrieves and parses sample i as a gene tree, resolving tag-less
// leaves through imap. Error semantics match SpeciesTree.
func (f *SampleFile) GeneTree(i int, imap model.Imap) (*model.Tree, newick.GeneMeta, error) {
	defer metrics.Timer(metrics.ParseGene)()
	line, err := f.Index.Line(i)
	if err != nil {
		return nil, newick.GeneMeta{}, err
	}
	t, meta := newick.ParseGene(line, imap)
	return t, meta, nil
}
