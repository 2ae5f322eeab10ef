package newick

import (
	"strconv"
	"strings"

	"github.com/vanderheijden86/coalview/pkg/model"
)

// WriteSpecies serializes a species tree back to its sample-line form,
// terminated with a semicolon. Parsing the output reproduces the same
// topology, branch lengths and theta values up to float formatting.
func WriteSpecies(t *model.Tree) string {
	if t == nil || t.Len() == 0 {
		return ""
	}
	var b strings.Builder
	writeSpeciesNode(&b, t, model.Root)
	b.WriteByte(';')
	return b.String()
}

func writeSpeciesNode(b *strings.Builder, t *model.Tree, i int) {
	n := &t.Nodes[i]
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for k, c := range n.Children {
			if k > 0 {
				b.WriteByte(',')
			}
			writeSpeciesNode(b, t, c)
		}
		b.WriteByte(')')
	}
	b.WriteString(n.Name)
	if n.HasTheta {
		b.WriteByte('#')
		b.WriteString(strconv.FormatFloat(n.Theta, 'g', -1, 64))
	}
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
}
