package model

// Height returns the depth of the tree: the maximum cumulative branch length
// from the root down to any leaf. An empty tree has height 0.
func (t *Tree) Height() float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	type frame struct {
		node  int
		depth float64
	}
	max := 0.0
	stack := []frame{{Root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.IsLeaf(f.node) {
			if f.depth > max {
				max = f.depth
			}
			continue
		}
		for _, c := range t.Nodes[f.node].Children {
			stack = append(stack, frame{c, f.depth + t.Nodes[c].Length})
		}
	}
	return max
}

// Ages returns the age of every node, indexed by arena position. Leaves have
// age 0; an internal node's age is its first child's age plus that child's
// branch length. Sibling subtrees of an ultrametric sample agree on this
// value, so only the first child is consulted.
func (t *Tree) Ages() []float64 {
	ages := make([]float64, len(t.Nodes))
	for _, i := range t.PostOrder() {
		kids := t.Nodes[i].Children
		if len(kids) == 0 {
			continue
		}
		first := kids[0]
		ages[i] = ages[first] + t.Nodes[first].Length
	}
	return ages
}
