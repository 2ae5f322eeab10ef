package loader_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/coalview/pkg/loader"
	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/sampleindex"
	"github.com/vanderheijden86/coalview/pkg/testutil"
)

var speciesLines = []string{
	"((A:1,B:1)AB:0.5,C:1.5)R:0;",
	"((A:0.8,B:0.8):0.9,C:1.7);",
	"not a tree at all",
	"((A:1.2,B:1.2):0.1,C:1.3);",
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSampleFile(t, dir, "run.mcmc", speciesLines)

	f, err := loader.Open(context.Background(), path, loader.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if f.Count() != len(speciesLines) {
		t.Fatalf("Count() = %d, want %d", f.Count(), len(speciesLines))
	}

	t.Run("readable sample", func(t *testing.T) {
		tree, err := f.SpeciesTree(0)
		if err != nil {
			t.Fatalf("SpeciesTree: %v", err)
		}
		if tree == nil {
			t.Fatal("sample 0 should parse")
		}
		testutil.AssertLeafNames(t, tree, "A", "B", "C")
	})

	t.Run("unreadable sample is nil not error", func(t *testing.T) {
		tree, err := f.SpeciesTree(2)
		if err != nil {
			t.Fatalf("a parse failure must not surface as an error: %v", err)
		}
		if tree != nil {
			t.Errorf("garbage line parsed to %d nodes", tree.Len())
		}
	})

	t.Run("out of range is an error", func(t *testing.T) {
		if _, err := f.SpeciesTree(99); err == nil {
			t.Error("out-of-range sample should fail")
		}
	})
}

func TestOpenSkipFirstLine(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSampleFile(t, dir, "run.mcmc",
		append([]string{"generation ln-likelihood tree"}, speciesLines...))

	f, err := loader.Open(context.Background(), path, loader.OpenOptions{SkipFirstLine: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if f.Count() != len(speciesLines) {
		t.Fatalf("Count() = %d, want %d", f.Count(), len(speciesLines))
	}
	tree, err := f.SpeciesTree(0)
	if err != nil || tree == nil {
		t.Fatalf("sample 0 after header should parse, got %v, %v", tree, err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := loader.Open(context.Background(), filepath.Join(t.TempDir(), "absent"), loader.OpenOptions{})
	if err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestOpenWithCache(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSampleFile(t, dir, "run.mcmc", speciesLines)
	cache, err := sampleindex.OpenCache(filepath.Join(dir, "offsets.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	opts := loader.OpenOptions{Cache: cache}

	first, err := loader.Open(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	wantOffsets := first.Index.Offsets()
	first.Close()

	if _, ok := cache.Load(path, false); !ok {
		t.Fatal("Open should have populated the cache")
	}

	second, err := loader.Open(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	gotOffsets := second.Index.Offsets()
	if len(gotOffsets) != len(wantOffsets) {
		t.Fatalf("revived %d offsets, want %d", len(gotOffsets), len(wantOffsets))
	}
	tree, err := second.SpeciesTree(3)
	if err != nil || tree == nil {
		t.Fatalf("revived index should serve samples, got %v, %v", tree, err)
	}
}

func TestGeneTree(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSampleFile(t, dir, "locus1.trees", []string{
		"((A^a1:0.3,b1:0.3):0.2,C^c1:0.5); [TH=0.5,TL=1.6]",
	})
	f, err := loader.Open(context.Background(), path, loader.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	imap := model.Imap{"b1": "B"}
	tree, meta, err := f.GeneTree(0, imap)
	if err != nil {
		t.Fatalf("GeneTree: %v", err)
	}
	if tree == nil {
		t.Fatal("gene sample should parse")
	}
	if !meta.HasHeight {
		t.Errorf("meta = %+v, want TH", meta)
	}
	testutil.AssertFloat(t, "TH", meta.Height, 0.5, 1e-12)

	leaves := tree.Leaves()
	if sp := tree.Nodes[leaves[1]].Species; sp != "B" {
		t.Errorf("b1 species = %q, want B via imap", sp)
	}
}

func TestEstimateDepth(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 0, 60)
	// Burn-in samples are much too tall; steady state sits near height 1.5.
	for i := 0; i < 10; i++ {
		lines = append(lines, "((A:5,B:5):5,C:10);")
	}
	for i := 0; i < 50; i++ {
		h := 1.4 + float64(i%5)*0.02
		lines = append(lines, fmt.Sprintf("((A:%.2f,B:%.2f):0.1,C:%.2f);", h-0.1, h-0.1, h))
	}
	path := testutil.WriteSampleFile(t, dir, "run.mcmc", lines)

	f, err := loader.Open(context.Background(), path, loader.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	t.Run("burn-in excluded", func(t *testing.T) {
		est, err := loader.EstimateDepth(context.Background(), f, 25, 1.0/6)
		if err != nil {
			t.Fatalf("EstimateDepth: %v", err)
		}
		if est.Sampled == 0 {
			t.Fatal("no samples contributed")
		}
		if est.MaxHeight > 2 {
			t.Errorf("MaxHeight = %g includes burn-in samples", est.MaxHeight)
		}
		if est.Depth < est.MaxHeight {
			t.Errorf("Depth %g below MaxHeight %g", est.Depth, est.MaxHeight)
		}
		if est.Depth > 3 {
			t.Errorf("Depth = %g, implausibly large for heights near 1.5", est.Depth)
		}
	})

	t.Run("burn-in included", func(t *testing.T) {
		est, err := loader.EstimateDepth(context.Background(), f, 60, 0)
		if err != nil {
			t.Fatalf("EstimateDepth: %v", err)
		}
		if est.MaxHeight < 9 {
			t.Errorf("MaxHeight = %g, want the tall burn-in trees included", est.MaxHeight)
		}
	})

	t.Run("unreadable samples skipped", func(t *testing.T) {
		p := testutil.WriteSampleFile(t, dir, "noise.mcmc", []string{
			"garbage", "((A:1,B:1):1,C:2);", "more garbage",
		})
		nf, err := loader.Open(context.Background(), p, loader.OpenOptions{})
		if err != nil {
			t.Fatal(err)
		}
		defer nf.Close()
		est, err := loader.EstimateDepth(context.Background(), nf, 10, 0)
		if err != nil {
			t.Fatalf("EstimateDepth: %v", err)
		}
		if est.Sampled != 1 {
			t.Errorf("Sampled = %d, want 1", est.Sampled)
		}
	})

	t.Run("all unreadable fails", func(t *testing.T) {
		p := testutil.WriteSampleFile(t, dir, "junk.mcmc", []string{"x", "y"})
		nf, err := loader.Open(context.Background(), p, loader.OpenOptions{})
		if err != nil {
			t.Fatal(err)
		}
		defer nf.Close()
		if _, err := loader.EstimateDepth(context.Background(), nf, 10, 0); err == nil {
			t.Error("a file with no readable samples should fail")
		}
	})
}

func TestOpenLoci(t *testing.T) {
	dir := t.TempDir()
	var paths, names []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("locus%d", i)
		paths = append(paths, testutil.WriteSampleFile(t, dir, name+".trees", []string{
			"(A^a1:1,B^b1:1);",
		}))
		names = append(names, name)
	}

	loci, err := loader.OpenLoci(context.Background(), paths, names, 2, loader.OpenOptions{})
	if err != nil {
		t.Fatalf("OpenLoci: %v", err)
	}
	defer loader.CloseLoci(loci)

	if len(loci) != 5 {
		t.Fatalf("opened %d loci, want 5", len(loci))
	}
	for i, l := range loci {
		if l.Name != names[i] {
			t.Errorf("locus %d name = %q, want %q", i, l.Name, names[i])
		}
		if l.File.Count() != 1 {
			t.Errorf("locus %d has %d samples, want 1", i, l.File.Count())
		}
	}

	t.Run("one failure closes the rest", func(t *testing.T) {
		bad := append([]string{filepath.Join(dir, "missing.trees")}, paths...)
		if _, err := loader.OpenLoci(context.Background(), bad, nil, 2, loader.OpenOptions{}); err == nil {
			t.Error("missing locus file should fail the batch")
		}
	})
}
