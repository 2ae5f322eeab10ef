// Package population derives ancestral-population time intervals from a
// species tree's branch-length geometry and answers containment queries
// against them.
//
// Every species-tree node spans one interval: from the node's age up to the
// start of its parent branch's end, holding exactly the taxa beneath the
// node. The membership sets form a laminar family mirroring the tree, which
// is what lets a gene-tree coalescence be checked against the single most
// specific population active at that instant.
package population

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/coalview/pkg/model"
)

// TaxonSet is a set of species names.
type TaxonSet map[string]struct{}

// NewTaxonSet builds a set from names, ignoring empty strings (unresolved
// species are excluded from strict containment checks).
func NewTaxonSet(names ...string) TaxonSet {
	s := make(TaxonSet, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name is in the set.
func (s TaxonSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// SupersetOf reports whether s contains every taxon of other.
func (s TaxonSet) SupersetOf(other TaxonSet) bool {
	if len(other) > len(s) {
		return false
	}
	for n := range other {
		if !s.Contains(n) {
			return false
		}
	}
	return true
}

// Names returns the sorted member names.
func (s TaxonSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Interval is one ancestral population: a time window [Start, End) with
// Start nearer the tips, and the taxa that form a single population during
// that window. Node is the species-tree arena index the interval derives
// from, or -1 for the synthetic root interval.
type Interval struct {
	Name  string
	Start float64
	End   float64
	Taxa  TaxonSet
	Node  int
}

// Model holds the non-overlapping population intervals derived from one
// species tree. It is rebuilt per render pass and immutable afterwards.
type Model struct {
	tree      *model.Tree
	intervals []Interval
	height    float64
	depth     float64
}

// NewModel builds the interval set from a species tree and a caller-supplied
// total depth. When depth exceeds the tree height a synthetic root interval
// covers [height, depth) with the full leaf set.
func NewModel(t *model.Tree, depth float64) *Model {
	m := &Model{tree: t, depth: depth}
	if t == nil || t.Len() == 0 {
		return m
	}

	ages := t.Ages()
	m.height = ages[model.Root]

	// Leaf sets bottom-up; the post-order guarantees children are done
	// before their parent.
	taxa := make([]TaxonSet, t.Len())
	for _, i := range t.PostOrder() {
		n := &t.Nodes[i]
		if len(n.Children) == 0 {
			taxa[i] = NewTaxonSet(n.Name)
			continue
		}
		set := make(TaxonSet)
		for _, c := range n.Children {
			for name := range taxa[c] {
				set[name] = struct{}{}
			}
		}
		taxa[i] = set
	}

	m.intervals = make([]Interval, 0, t.Len()+1)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		m.intervals = append(m.intervals, Interval{
			Name:  intervalName(n.Name, taxa[i]),
			Start: ages[i],
			End:   ages[i] + n.Length,
			Taxa:  taxa[i],
			Node:  i,
		})
	}
	if depth > m.height {
		m.intervals = append(m.intervals, Interval{
			Name:  intervalName(t.Nodes[model.Root].Name, taxa[model.Root]),
			Start: m.height,
			End:   depth,
			Taxa:  taxa[model.Root],
			Node:  -1,
		})
	}
	return m
}

// intervalName prefers the node's own label and falls back to the joined
// membership, so unnamed internal populations still get a stable identity
// for palette slots.
func intervalName(label string, taxa TaxonSet) string {
	if label != "" {
		return label
	}
	return strings.Join(taxa.Names(), "+")
}

// Intervals returns all intervals. The slice is shared; callers must not
// modify it.
func (m *Model) Intervals() []Interval { return m.intervals }

// Height returns the species tree's height.
func (m *Model) Height() float64 { return m.height }

// Depth returns the total depth the model was built with.
func (m *Model) Depth() float64 { return m.depth }

// IsClade reports whether taxa exactly matches the membership of some
// interval, i.e. names a group that is a single ancestral population at some
// point in time. Used to soften timing checks: gene and species samples are
// distinct posterior draws, so a clade may coalesce earlier than this
// particular species sample's divergence for it.
func (m *Model) IsClade(taxa TaxonSet) bool {
	for _, iv := range m.intervals {
		if len(iv.Taxa) == len(taxa) && iv.Taxa.SupersetOf(taxa) {
			return true
		}
	}
	return false
}

// ContainsTaxaAt returns the most specific population containing every taxon
// of taxa at time t: among intervals with t in [Start, End] and membership a
// superset of taxa, the one with the smallest membership. ok is false when no
// interval qualifies; ties break arbitrarily since the result feeds
// diagnostics, not layout.
func (m *Model) ContainsTaxaAt(taxa TaxonSet, t float64) (Interval, bool) {
	best := -1
	for i, iv := range m.intervals {
		if t < iv.Start || t > iv.End {
			continue
		}
		if !iv.Taxa.SupersetOf(taxa) {
			continue
		}
		if best < 0 || len(iv.Taxa) < len(m.intervals[best].Taxa) {
			best = i
		}
	}
	if best < 0 {
		return Interval{}, false
	}
	return m.intervals[best], true
}
