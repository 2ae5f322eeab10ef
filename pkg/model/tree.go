// Package model defines the in-memory representation of sampled
// phylogenetic trees.
//
// Trees are stored as an arena of nodes addressed by index, with explicit
// child-index lists. Posterior samples can be pathologically deep and
// unbalanced, so all traversals in this package are iterative; nothing here
// recurses on tree depth.
package model

// Root is the arena index of the root node of every well-formed Tree.
const Root = 0

// Node is a single node in a sampled tree. Species trees use Name and the
// Theta fields; gene trees use Species and Individual, derived from the leaf
// tag or an Imap lookup. A node is a leaf exactly when Children is empty.
type Node struct {
	// Name is the taxon label; empty for internal nodes.
	Name string
	// Length is the branch length above this node. Never negative.
	Length float64
	// Theta is the population-size parameter annotated on the branch.
	// Only meaningful when HasTheta is true.
	Theta    float64
	HasTheta bool
	// Children holds arena indices of this node's children, in input order.
	Children []int

	// Species and Individual are set on gene-tree leaves. An empty Species
	// on a leaf means the leaf could not be resolved to a species.
	Species    string
	Individual string
}

// Tree is an arena of nodes. Nodes[Root] is the root. A zero Tree has no
// nodes and is not a valid tree; parsers return nil instead of constructing
// one.
type Tree struct {
	Nodes []Node
}

// NewTree returns a tree with capacity for n nodes.
func NewTree(n int) *Tree {
	return &Tree{Nodes: make([]Node, 0, n)}
}

// Add appends a node to the arena and returns its index.
func (t *Tree) Add(n Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.Nodes) }

// IsLeaf reports whether node i has no children.
func (t *Tree) IsLeaf(i int) bool { return len(t.Nodes[i].Children) == 0 }

// Leaves returns the arena indices of all leaves in input order, i.e. the
// order in which the taxa appeared in the parsed text.
func (t *Tree) Leaves() []int {
	if len(t.Nodes) == 0 {
		return nil
	}
	var leaves []int
	// Preorder with an explicit stack; children pushed in reverse so they
	// pop in input order.
	stack := []int{Root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.IsLeaf(i) {
			leaves = append(leaves, i)
			continue
		}
		kids := t.Nodes[i].Children
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, kids[k])
		}
	}
	return leaves
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	n := 0
	for i := range t.Nodes {
		if t.IsLeaf(i) {
			n++
		}
	}
	return n
}

// LeafNames returns the taxon labels of all leaves in input order.
func (t *Tree) LeafNames() []string {
	leaves := t.Leaves()
	names := make([]string, len(leaves))
	for i, l := range leaves {
		names[i] = t.Nodes[l].Name
	}
	return names
}

// PostOrder returns all node indices with every child appearing before its
// parent. Shared by age computation, population-interval construction and
// gene-lineage embedding.
func (t *Tree) PostOrder() []int {
	if len(t.Nodes) == 0 {
		return nil
	}
	order := make([]int, 0, len(t.Nodes))
	stack := []int{Root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		stack = append(stack, t.Nodes[i].Children...)
	}
	// Reversed preorder (parent before child, rightmost first) is a valid
	// post-order.
	for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
		order[l], order[r] = order[r], order[l]
	}
	return order
}

// Parents returns, for every node, the arena index of its parent, or -1 for
// the root.
func (t *Tree) Parents() []int {
	parents := make([]int, len(t.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i := range t.Nodes {
		for _, c := range t.Nodes[i].Children {
			parents[c] = i
		}
	}
	return parents
}
