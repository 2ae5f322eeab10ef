package loader

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Locus is one opened gene-tree sample file.
type Locus struct {
	// Name identifies the locus, usually derived by the caller from the
	// file name.
	Name string
	File *SampleFile
}

// OpenLoci opens and indexes many gene-tree sample files concurrently, at
// most limit at a time. On any failure all already-opened files are closed
// and the first error is returned.
func OpenLoci(ctx context.Context, paths []string, names []string, limit int, opts OpenOptions) ([]*Locus, error) {
	if limit <= 0 {
		limit = 4
	}
	loci := make([]*Locus, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			f, err := Open(ctx, path, opts)
			if err != nil {
				return err
			}
			name := path
			if names != nil && i < len(names) {
				name = names[i]
			}
			loci[i] = &Locus{Name: name, File: f}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, l := range loci {
			if l != nil {
				l.File.Close()
			}
		}
		return nil, err
	}
	return loci, nil
}

// CloseLoci closes every opened locus.
func CloseLoci(loci []*Locus) {
	for _, l := range loci {
		if l != nil {
			l.File.Close()
		}
	}
}
