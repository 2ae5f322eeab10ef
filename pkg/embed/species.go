package embed

import (
	"github.com/vanderheijden86/coalview/pkg/model"
)

// Band is the horizontal extent reserved for one species: the anchor of its
// lineage tube and half the tube's width.
type Band struct {
	Center    float64
	HalfWidth float64
}

// SpeciesLayout is the drawable geometry of one species tree: a band per
// taxon plus one polyline per edge tracing the tube centerlines.
type SpeciesLayout struct {
	Bands map[string]Band
	// Edges maps each species-tree node to the polyline of the branch above
	// it: up the node's own tube, then across to the parent's anchor.
	Edges map[int]Polyline
	Scale TimeScale
}

// tubeFill is the fraction of a species' horizontal slot its tube occupies.
const tubeFill = 0.7

// LayoutSpecies places a species tree across a horizontal span [left,
// left+width): leaves evenly spaced in input order, internal nodes at the
// unweighted mean of their children, tube widths a fixed fraction of the
// per-leaf slot.
func LayoutSpecies(t *model.Tree, left, width float64, scale TimeScale) *SpeciesLayout {
	layout := &SpeciesLayout{
		Bands: make(map[string]Band),
		Edges: make(map[int]Polyline),
		Scale: scale,
	}
	if t == nil || t.Len() == 0 {
		return layout
	}

	leaves := t.Leaves()
	slot := width / float64(len(leaves))
	x := make([]float64, t.Len())
	for i, l := range leaves {
		x[l] = left + slot*(float64(i)+0.5)
		layout.Bands[t.Nodes[l].Name] = Band{Center: x[l], HalfWidth: slot * tubeFill / 2}
	}
	for _, i := range t.PostOrder() {
		kids := t.Nodes[i].Children
		if len(kids) == 0 {
			continue
		}
		sum := 0.0
		for _, c := range kids {
			sum += x[c]
		}
		x[i] = sum / float64(len(kids))
	}

	ages := t.Ages()
	parents := t.Parents()
	for i := range t.Nodes {
		top := ages[i] + t.Nodes[i].Length
		line := Polyline{
			{X: x[i], Y: scale.Y(ages[i])},
			{X: x[i], Y: scale.Y(top)},
		}
		if p := parents[i]; p >= 0 {
			line = append(line, Point{X: x[p], Y: scale.Y(top)})
		}
		layout.Edges[i] = line
	}
	return layout
}
