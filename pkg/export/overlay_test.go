package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/coalview/pkg/embed"
	"github.com/vanderheijden86/coalview/pkg/export"
	"github.com/vanderheijden86/coalview/pkg/population"
	"github.com/vanderheijden86/coalview/pkg/testutil"
)

func overlayFixture(t *testing.T) export.OverlayOptions {
	t.Helper()
	tree := testutil.MustParseSpecies(t, "((A:1,B:1)AB:0.5,C:1.5)R:0;")
	scale := embed.TimeScale{TipY: 600, PerUnit: 250}
	layout := embed.LayoutSpecies(tree, 60, 800, scale)
	m := population.NewModel(tree, 2)

	// A and C coalesce before the root window, so the embedding carries
	// one violation and the render exercises the violation styling.
	gt := testutil.MustParseGene(t, "((A^a1:0.5,C^c1:0.5):1.2,B^b1:1.7);", nil)
	g := embed.EmbedGene(gt, embed.EmbedOptions{Bands: layout.Bands, Scale: scale, Model: m})

	return export.OverlayOptions{
		Title:   "fixture",
		Layout:  layout,
		Model:   m,
		Genes:   []*embed.GeneEmbedding{g},
		Palette: population.NewPalette(),
		Width:   900,
		Height:  640,
		Depth:   2,
	}
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := export.RenderSVG(&buf, overlayFixture(t)); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := buf.String()

	checks := []struct {
		name, substr string
	}{
		{"svg envelope", "<svg"},
		{"closing tag", "</svg>"},
		{"title", "fixture"},
		{"population tube polygon", "<polygon"},
		{"lineage polyline", "<polyline"},
		{"coalescence circle", "<circle"},
		{"violation stroke", "#c62828"},
		{"scale-bar label", ">1<"},
	}
	for _, c := range checks {
		if !strings.Contains(out, c.substr) {
			t.Errorf("SVG output missing %s (%q)", c.name, c.substr)
		}
	}
}

func TestSaveOverlay(t *testing.T) {
	dir := t.TempDir()

	t.Run("svg by extension", func(t *testing.T) {
		opts := overlayFixture(t)
		opts.Path = filepath.Join(dir, "out", "overlay.svg")
		if err := export.SaveOverlay(opts); err != nil {
			t.Fatalf("SaveOverlay: %v", err)
		}
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			t.Fatalf("output not written: %v", err)
		}
		if !bytes.Contains(data, []byte("<svg")) {
			t.Error("output is not SVG")
		}
	})

	t.Run("png by extension", func(t *testing.T) {
		opts := overlayFixture(t)
		opts.Path = filepath.Join(dir, "overlay.png")
		if err := export.SaveOverlay(opts); err != nil {
			t.Fatalf("SaveOverlay: %v", err)
		}
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			t.Fatalf("output not written: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("\x89PNG")) {
			t.Error("output is not PNG")
		}
	})

	t.Run("extensionless path defaults to svg", func(t *testing.T) {
		opts := overlayFixture(t)
		opts.Path = filepath.Join(dir, "bare")
		if err := export.SaveOverlay(opts); err != nil {
			t.Fatalf("SaveOverlay: %v", err)
		}
		if _, err := os.Stat(opts.Path + ".svg"); err != nil {
			t.Errorf("expected bare.svg: %v", err)
		}
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		opts := overlayFixture(t)
		opts.Path = filepath.Join(dir, "x.svg")
		opts.Format = "gif"
		if err := export.SaveOverlay(opts); err == nil {
			t.Error("gif should be rejected")
		}
	})

	t.Run("missing layout rejected", func(t *testing.T) {
		err := export.SaveOverlay(export.OverlayOptions{Path: filepath.Join(dir, "y.svg")})
		if err == nil {
			t.Error("nil layout should be rejected")
		}
	})
}

func TestRenderSVGWithoutModel(t *testing.T) {
	opts := overlayFixture(t)
	opts.Model = nil
	var buf bytes.Buffer
	if err := export.RenderSVG(&buf, opts); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if strings.Contains(buf.String(), "<polygon") {
		t.Error("no tubes should render without a population model")
	}
}
