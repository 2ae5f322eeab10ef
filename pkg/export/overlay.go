// Package export renders embedded tree geometry to static images. The SVG
// and PNG backends draw the same primitives: filled polygons for population
// tubes, stroked polylines for gene lineages, stroked circles for
// coalescences and baseline-anchored text for the scale bar.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/coalview/pkg/embed"
	"github.com/vanderheijden86/coalview/pkg/metrics"
	"github.com/vanderheijden86/coalview/pkg/population"
)

// OverlayOptions controls overlay export behaviour.
type OverlayOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered above the plot

	Layout  *embed.SpeciesLayout   // Species tube geometry
	Model   *population.Model      // Population intervals (tube fills)
	Genes   []*embed.GeneEmbedding // Gene trees overlaid on the tubes
	Palette *population.Palette    // Caller-owned slot table; reset per pass

	Width  int     // Canvas width; defaults when 0
	Height int     // Canvas height; defaults when 0
	Depth  float64 // Total time depth shown (drives the scale bar)
}

// SaveOverlay renders the species tubes, gene-lineage overlay and scale bar
// to an SVG or PNG file.
func SaveOverlay(opts OverlayOptions) error {
	defer metrics.Timer(metrics.Render)()

	if opts.Layout == nil {
		return fmt.Errorf("species layout is required for overlay export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Palette == nil {
		opts.Palette = population.NewPalette()
	}
	if opts.Width <= 0 {
		opts.Width = 900
	}
	if opts.Height <= 0 {
		opts.Height = 640
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch format {
	case "svg":
		f, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		return RenderSVG(f, opts)
	default:
		return renderPNG(opts)
	}
}

// --- colors ----------------------------------------------------------------

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorLineage  = color.RGBA{0x22, 0x44, 0x88, 0xff}
	colorViolated = color.RGBA{0xc6, 0x28, 0x28, 0xff}
	colorAxis     = color.RGBA{0x44, 0x44, 0x44, 0xff}

	// tubeColors is cycled through palette slots so identical population
	// names render identically within one pass.
	tubeColors = []color.RGBA{
		{0xc8, 0xe6, 0xc9, 0xff},
		{0xbb, 0xde, 0xfb, 0xff},
		{0xff, 0xf3, 0xe0, 0xff},
		{0xe1, 0xbe, 0xe7, 0xff},
		{0xff, 0xcd, 0xd2, 0xff},
		{0xb2, 0xdf, 0xdb, 0xff},
		{0xf0, 0xf4, 0xc3, 0xff},
		{0xcf, 0xd8, 0xdc, 0xff},
	}
)

func slotColor(p *population.Palette, name string) color.RGBA {
	return tubeColors[p.Slot(name)%len(tubeColors)]
}

// tubeExtent returns the horizontal extent of an interval: the union of its
// member species' bands. ok is false when no member has a band.
func tubeExtent(iv population.Interval, bands map[string]embed.Band) (lo, hi float64, ok bool) {
	first := true
	for name := range iv.Taxa {
		b, found := bands[name]
		if !found {
			continue
		}
		l, h := b.Center-b.HalfWidth, b.Center+b.HalfWidth
		if first || l < lo {
			lo = l
		}
		if first || h > hi {
			hi = h
		}
		first = false
	}
	return lo, hi, !first
}

// --- SVG backend -----------------------------------------------------------

// RenderSVG writes the overlay as SVG. Exposed separately from SaveOverlay
// so tests and embedding hosts can render to any writer.
func RenderSVG(w io.Writer, opts OverlayOptions) error {
	canvas := svg.New(w)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:"+css(colorBackdrop))

	if opts.Title != "" {
		canvas.Text(16, 24, opts.Title,
			"fill:"+css(colorText)+";font-size:15px;font-family:monospace;font-weight:bold")
	}

	scale := opts.Layout.Scale

	// population tubes, oldest first so nested (younger) populations paint
	// on top of their ancestors
	if opts.Model != nil {
		ivs := opts.Model.Intervals()
		for i := len(ivs) - 1; i >= 0; i-- {
			iv := ivs[i]
			lo, hi, ok := tubeExtent(iv, opts.Layout.Bands)
			if !ok {
				continue
			}
			yTop := scale.Y(iv.End)
			yBot := scale.Y(iv.Start)
			canvas.Polygon(
				[]int{int(lo), int(hi), int(hi), int(lo)},
				[]int{int(yTop), int(yTop), int(yBot), int(yBot)},
				"fill:"+css(slotColor(opts.Palette, iv.Name)),
			)
		}
	}

	// species tube centerlines
	for _, line := range opts.Layout.Edges {
		drawPolylineSVG(canvas, line, colorSubtle, 1)
	}

	// gene lineages
	for _, g := range opts.Genes {
		if g == nil {
			continue
		}
		for _, line := range g.Edges {
			drawPolylineSVG(canvas, line, colorLineage, 1.5)
		}
		violated := make(map[int]bool, len(g.Violations))
		for _, v := range g.Violations {
			violated[v.Node] = true
		}
		for i, a := range g.Anchors {
			c := colorLineage
			if violated[i] {
				c = colorViolated
			}
			canvas.Circle(int(a.X), int(a.Y), 3,
				"fill:none;stroke:"+css(c)+";stroke-width:1.5")
		}
	}

	drawScaleBarSVG(canvas, opts, scale)

	canvas.End()
	return nil
}

func drawPolylineSVG(canvas *svg.SVG, line embed.Polyline, c color.RGBA, width float64) {
	xs := make([]int, len(line))
	ys := make([]int, len(line))
	for i, p := range line {
		xs[i] = int(p.X)
		ys[i] = int(p.Y)
	}
	canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.1f", css(c), width))
}

func drawScaleBarSVG(canvas *svg.SVG, opts OverlayOptions, scale embed.TimeScale) {
	const axisX = 36
	canvas.Line(axisX, int(scale.Y(0)), axisX, int(scale.Y(opts.Depth)),
		"stroke:"+css(colorAxis)+";stroke-width:1")
	for _, t := range embed.Ticks(opts.Depth) {
		y := int(scale.Y(t))
		canvas.Line(axisX-4, y, axisX, y, "stroke:"+css(colorAxis)+";stroke-width:1")
		canvas.Text(axisX-8, y+4, formatTick(t),
			"fill:"+css(colorSubtle)+";font-size:10px;font-family:monospace;text-anchor:end")
	}
}

// --- PNG backend -----------------------------------------------------------

func renderPNG(opts OverlayOptions) error {
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	if opts.Title != "" {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(opts.Title, 16, 20, 0, 0.5)
	}

	scale := opts.Layout.Scale

	if opts.Model != nil {
		ivs := opts.Model.Intervals()
		for i := len(ivs) - 1; i >= 0; i-- {
			iv := ivs[i]
			lo, hi, ok := tubeExtent(iv, opts.Layout.Bands)
			if !ok {
				continue
			}
			dc.SetColor(slotColor(opts.Palette, iv.Name))
			yTop := scale.Y(iv.End)
			yBot := scale.Y(iv.Start)
			dc.DrawRectangle(lo, yTop, hi-lo, yBot-yTop)
			dc.Fill()
		}
	}

	dc.SetLineWidth(1)
	dc.SetColor(colorSubtle)
	for _, line := range opts.Layout.Edges {
		strokePolylinePNG(dc, line)
	}

	for _, g := range opts.Genes {
		if g == nil {
			continue
		}
		dc.SetLineWidth(1.5)
		dc.SetColor(colorLineage)
		for _, line := range g.Edges {
			strokePolylinePNG(dc, line)
		}
		violated := make(map[int]bool, len(g.Violations))
		for _, v := range g.Violations {
			violated[v.Node] = true
		}
		for i, a := range g.Anchors {
			if violated[i] {
				dc.SetColor(colorViolated)
			} else {
				dc.SetColor(colorLineage)
			}
			dc.DrawCircle(a.X, a.Y, 3)
			dc.Stroke()
		}
	}

	drawScaleBarPNG(dc, opts, scale)

	return dc.SavePNG(opts.Path)
}

func strokePolylinePNG(dc *gg.Context, line embed.Polyline) {
	if len(line) < 2 {
		return
	}
	dc.NewSubPath()
	dc.MoveTo(line[0].X, line[0].Y)
	for _, p := range line[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
}

func drawScaleBarPNG(dc *gg.Context, opts OverlayOptions, scale embed.TimeScale) {
	const axisX = 36.0
	dc.SetColor(colorAxis)
	dc.SetLineWidth(1)
	dc.DrawLine(axisX, scale.Y(0), axisX, scale.Y(opts.Depth))
	dc.Stroke()
	for _, t := range embed.Ticks(opts.Depth) {
		y := scale.Y(t)
		dc.DrawLine(axisX-4, y, axisX, y)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(formatTick(t), axisX-8, y, 1, 0.5)
		dc.SetColor(colorAxis)
	}
}

// --- helpers ---------------------------------------------------------------

func formatTick(t float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", t), "0"), ".")
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
