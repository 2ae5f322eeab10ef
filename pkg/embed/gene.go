package embed

import (
	"github.com/vanderheijden86/coalview/pkg/metrics"
	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/population"
)

// Violation records a gene-tree coalescence with no valid containing
// population: the merger happens at a time when its species were not yet (or
// no longer) a single ancestral population. Violations are diagnostics; they
// never abort an embedding.
type Violation struct {
	// Node is the gene-tree arena index of the coalescence.
	Node int `json:"node"`
	// Age is the coalescence age.
	Age float64 `json:"age"`
	// Species is the sorted set of species under the coalescence.
	Species []string `json:"species"`
}

// GeneEmbedding is the drawable geometry of one gene tree overlaid on a
// species layout: an anchor per node, the branch polyline above each node,
// and the containment violations found along the way.
type GeneEmbedding struct {
	Anchors []Point
	Edges   map[int]Polyline
	// Violations lists coalescences with no containing population.
	Violations []Violation
	// Unresolved lists leaf indices whose species could not be resolved;
	// they are placed but excluded from strict containment checks.
	Unresolved []int
}

// EmbedOptions configures EmbedGene. Bands and Scale usually come from a
// SpeciesLayout built over the same view; Model may be nil to skip
// containment checking entirely.
type EmbedOptions struct {
	Bands map[string]Band
	Scale TimeScale
	Model *population.Model
}

// EmbedGene embeds a gene tree, children before parents. Leaves are placed
// deterministically inside their species' band (a single individual at the
// band center, k individuals evenly spaced); an internal node sits at the
// unweighted mean of its children's anchors, at the height of its
// coalescence age. Each coalescence is checked against the population model
// with the union of resolved species beneath it.
func EmbedGene(gt *model.Tree, opts EmbedOptions) *GeneEmbedding {
	defer metrics.Timer(metrics.Embed)()

	emb := &GeneEmbedding{Edges: make(map[int]Polyline)}
	if gt == nil || gt.Len() == 0 {
		return emb
	}

	emb.Anchors = make([]Point, gt.Len())
	ages := gt.Ages()

	// Deterministic per-species placement: count individuals per band in
	// input order, then spread each species' leaves evenly across its band.
	leaves := gt.Leaves()
	perSpecies := make(map[string][]int)
	for _, l := range leaves {
		sp := gt.Nodes[l].Species
		perSpecies[sp] = append(perSpecies[sp], l)
		if sp == "" {
			emb.Unresolved = append(emb.Unresolved, l)
		}
	}
	for sp, members := range perSpecies {
		band := bandFor(sp, opts.Bands)
		k := len(members)
		for j, l := range members {
			x := band.Center
			if k > 1 {
				x = band.Center - band.HalfWidth + 2*band.HalfWidth*float64(j)/float64(k-1)
			}
			emb.Anchors[l] = Point{X: x, Y: opts.Scale.Y(0)}
		}
	}

	// Species sets bottom-up for containment checks; unresolved leaves
	// contribute nothing.
	taxa := make([]population.TaxonSet, gt.Len())
	for _, i := range gt.PostOrder() {
		n := &gt.Nodes[i]
		if len(n.Children) == 0 {
			taxa[i] = population.NewTaxonSet(n.Species)
			continue
		}

		set := make(population.TaxonSet)
		sum := 0.0
		for _, c := range n.Children {
			for name := range taxa[c] {
				set[name] = struct{}{}
			}
			sum += emb.Anchors[c].X
		}
		taxa[i] = set
		emb.Anchors[i] = Point{
			X: sum / float64(len(n.Children)),
			Y: opts.Scale.Y(ages[i]),
		}

		if opts.Model != nil && len(set) > 0 {
			if _, ok := opts.Model.ContainsTaxaAt(set, ages[i]); !ok {
				// A set that is an exact clade merely disagrees with this
				// species sample's timing; only a set that is never a single
				// population is structurally impossible.
				if !opts.Model.IsClade(set) {
					emb.Violations = append(emb.Violations, Violation{
						Node:    i,
						Age:     ages[i],
						Species: set.Names(),
					})
				}
			}
		}
	}

	// The branch above each node runs vertically from its anchor to the top
	// of its own branch.
	for i := range gt.Nodes {
		top := ages[i] + gt.Nodes[i].Length
		emb.Edges[i] = Polyline{
			emb.Anchors[i],
			{X: emb.Anchors[i].X, Y: opts.Scale.Y(top)},
		}
	}
	return emb
}

// bandFor returns the species' band, or a fallback spanning all known bands
// when the species is unmatched or unresolved so the leaf is still placed.
func bandFor(sp string, bands map[string]Band) Band {
	if b, ok := bands[sp]; ok && sp != "" {
		return b
	}
	if len(bands) == 0 {
		return Band{Center: 0, HalfWidth: 0}
	}
	min, max := 0.0, 0.0
	first := true
	for _, b := range bands {
		lo, hi := b.Center-b.HalfWidth, b.Center+b.HalfWidth
		if first || lo < min {
			min = lo
		}
		if first || hi > max {
			max = hi
		}
		first = false
	}
	return Band{Center: (min + max) / 2, HalfWidth: (max - min) / 2}
}
