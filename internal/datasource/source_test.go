package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want SourceType
		ok   bool
	}{
		{"run1.mcmc", SourceSpecies, true},
		{"species_trees.txt", SourceSpecies, true},
		{"Imap.txt", SourceImap, true},
		{"data.imap", SourceImap, true},
		{"locus3.trees", SourceGene, true},
		{"locus3.gtree", SourceGene, true},
		{"notes.txt", SourceGene, true},
		{"archive.tar.gz", "", false},
		{"README.md", "", false},
	}
	for _, tt := range tests {
		typ, ok := classify(tt.name)
		if ok != tt.ok || typ != tt.want {
			t.Errorf("classify(%q) = %q,%v, want %q,%v", tt.name, typ, ok, tt.want, tt.ok)
		}
	}
}

func TestDiscoverSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run.mcmc", "((A:1,B:1):1,C:2);\n")
	writeFile(t, dir, "locus1.trees", "(A^a1:1,B^b1:1);\n")
	writeFile(t, dir, "Imap.txt", "a1 A\nb1 B\n")
	writeFile(t, dir, "README.md", "docs\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	sources, err := DiscoverSources(DiscoveryOptions{Dir: dir, ValidateAfterDiscovery: true})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("discovered %d sources, want 3: %v", len(sources), sources)
	}
	for _, s := range sources {
		if !s.Valid {
			t.Errorf("source %s should be valid: %s", s.Path, s.ValidationError)
		}
	}
}

func TestDiscoverSourcesInvalidFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run.mcmc", "this is not a tree\n")
	writeFile(t, dir, "locus1.trees", "(A^a1:1,B^b1:1);\n")

	sources, err := DiscoverSources(DiscoveryOptions{Dir: dir, ValidateAfterDiscovery: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Type != SourceGene {
		t.Errorf("invalid species file should be filtered, got %v", sources)
	}

	all, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("IncludeInvalid should keep both, got %v", all)
	}
}

func TestDiscoverSourcesOrdering(t *testing.T) {
	dir := t.TempDir()
	older := writeFile(t, dir, "locus1.trees", "(A^a1:1,B^b1:1);\n")
	newer := writeFile(t, dir, "run.mcmc", "((A:1,B:1):1,C:2);\n")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	sources, err := DiscoverSources(DiscoveryOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources", len(sources))
	}
	if sources[0].Path != newer {
		t.Errorf("newest file should sort first, got %s", sources[0].Path)
	}
}

func TestValidateSource(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		typ     SourceType
		valid   bool
	}{
		{"good species", "a.mcmc", "((A:1,B:1):1,C:2);\n", SourceSpecies, true},
		{"bad species", "b.mcmc", "garbage\n", SourceSpecies, false},
		{"good gene", "c.trees", "(A^a1:1,B^b1:1); [TH=1]\n", SourceGene, true},
		{"empty file", "d.trees", "", SourceGene, false},
		{"good imap", "e.imap", "a1 A\n", SourceImap, true},
		{"empty imap", "f.imap", "onlyonetoken\n", SourceImap, false},
		{"blank then tree", "g.mcmc", "\n\n((A:1,B:1):1,C:2);\n", SourceSpecies, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DataSource{Type: tt.typ, Path: writeFile(t, dir, tt.file, tt.content)}
			err := ValidateSource(&s)
			if s.Valid != tt.valid {
				t.Errorf("Valid = %v (err %v), want %v", s.Valid, err, tt.valid)
			}
			if !tt.valid && s.ValidationError == "" {
				t.Error("invalid source should record a reason")
			}
		})
	}
}

func TestSelectDataset(t *testing.T) {
	sources := []DataSource{
		{Type: SourceSpecies, Path: "new.mcmc"},
		{Type: SourceGene, Path: "l1.trees"},
		{Type: SourceSpecies, Path: "old.mcmc"},
		{Type: SourceGene, Path: "l2.trees"},
		{Type: SourceImap, Path: "Imap.txt"},
	}
	ds, err := SelectDataset(sources)
	if err != nil {
		t.Fatalf("SelectDataset: %v", err)
	}
	if ds.Species.Path != "new.mcmc" {
		t.Errorf("Species = %s, want the first (newest) one", ds.Species.Path)
	}
	if len(ds.Loci) != 2 {
		t.Errorf("Loci = %v, want both", ds.Loci)
	}
	if ds.Imap == nil || ds.Imap.Path != "Imap.txt" {
		t.Errorf("Imap = %v", ds.Imap)
	}

	if _, err := SelectDataset(nil); err == nil {
		t.Error("no species file should fail selection")
	}
}
