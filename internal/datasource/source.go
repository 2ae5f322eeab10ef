// Package datasource discovers and validates the files that make up a
// coalview dataset: one species-tree sample file, any number of per-locus
// gene-tree sample files, and an optional individual→species mapping.
package datasource

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/newick"
)

// SourceType identifies the role of a discovered file.
type SourceType string

const (
	// SourceSpecies is a species-tree MCMC sample file.
	SourceSpecies SourceType = "species"
	// SourceGene is a per-locus gene-tree sample file.
	SourceGene SourceType = "gene"
	// SourceImap is an individual→species mapping file.
	SourceImap SourceType = "imap"
)

// DataSource represents one discovered dataset file.
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is the absolute path to the file.
	Path string `json:"path"`
	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// Valid indicates whether the source passed validation.
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false).
	ValidationError string `json:"validation_error,omitempty"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, mod=%s, %s)", s.Path, s.Type, s.ModTime.Format(time.RFC3339), status)
}

// DiscoveryOptions configures source discovery behavior.
type DiscoveryOptions struct {
	// Dir is the dataset directory.
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source.
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results.
	IncludeInvalid bool
	// Logger receives log messages; nil discards them.
	Logger func(msg string)
}

// DiscoverSources classifies every regular file in the dataset directory.
// Species files end in ".mcmc" or mention "species" in their name; mapping
// files mention "imap"; everything else ending in ".trees", ".gtree" or
// ".txt" counts as a gene locus. Results are ordered newest first, species
// before loci at equal timestamps.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		typ, ok := classify(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(opts.Dir, e.Name())
		sources = append(sources, DataSource{
			Type:    typ,
			Path:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		opts.Logger(fmt.Sprintf("found %s: %s", typ, path))
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				opts.Logger(fmt.Sprintf("validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return rank(sources[i].Type) < rank(sources[j].Type)
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	opts.Logger(fmt.Sprintf("discovered %d sources", len(sources)))
	return sources, nil
}

func classify(name string) (SourceType, bool) {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)
	switch {
	case strings.Contains(lower, "imap") || ext == ".imap":
		return SourceImap, true
	case ext == ".mcmc" || strings.Contains(lower, "species"):
		return SourceSpecies, true
	case ext == ".trees" || ext == ".gtree" || ext == ".txt":
		return SourceGene, true
	}
	return "", false
}

func rank(t SourceType) int {
	switch t {
	case SourceSpecies:
		return 0
	case SourceGene:
		return 1
	default:
		return 2
	}
}

// ValidateSource checks that a source's first content line is usable: a
// sample file must parse as a tree of its kind, a mapping file must contain
// at least one mapping. The result is recorded on the source.
func ValidateSource(s *DataSource) error {
	fail := func(err error) error {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}

	switch s.Type {
	case SourceImap:
		m, err := model.LoadImap(s.Path)
		if err != nil {
			return fail(err)
		}
		if len(m) == 0 {
			return fail(fmt.Errorf("no mappings in %s", s.Path))
		}
	default:
		line, err := firstLine(s.Path)
		if err != nil {
			return fail(err)
		}
		if s.Type == SourceSpecies {
			if newick.ParseSpecies(line) == nil {
				return fail(fmt.Errorf("first sample of %s is unreadable", s.Path))
			}
		} else {
			if t, _ := newick.ParseGene(line, nil); t == nil {
				return fail(fmt.Errorf("first sample of %s is unreadable", s.Path))
			}
		}
	}

	s.Valid = true
	s.ValidationError = ""
	return nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s is empty", path)
}

// Dataset is a selected set of sources: one species file, its loci and an
// optional mapping.
type Dataset struct {
	Species *DataSource
	Loci    []DataSource
	Imap    *DataSource
}

// SelectDataset picks the newest valid species file plus all gene and
// mapping sources from a discovery result.
func SelectDataset(sources []DataSource) (Dataset, error) {
	var ds Dataset
	for i := range sources {
		s := &sources[i]
		switch s.Type {
		case SourceSpecies:
			if ds.Species == nil {
				ds.Species = s
			}
		case SourceGene:
			ds.Loci = append(ds.Loci, *s)
		case SourceImap:
			if ds.Imap == nil {
				ds.Imap = s
			}
		}
	}
	if ds.Species == nil {
		return ds, fmt.Errorf("no species-tree sample file found")
	}
	return ds, nil
}
