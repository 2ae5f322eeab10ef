package newick

import (
	"strconv"
	"strings"

	"github.com/vanderheijden86/coalview/pkg/model"
)

// ParseSpecies decodes one species-tree sample line into a tree. The line is
// cleaned with CleanSampleLine first, so raw sampler output can be passed
// directly. Returns nil for empty or structurally malformed input.
func ParseSpecies(line string) *model.Tree {
	text := CleanSampleLine(line)
	if text == "" {
		return nil
	}
	t := model.NewTree(strings.Count(text, ",")*2 + 1)
	if !parseSpeciesNode(t, text) {
		return nil
	}
	return t
}

// parseSpeciesNode parses one NODE production into a fresh arena node. The
// node is appended before its children so the first call claims model.Root.
func parseSpeciesNode(t *model.Tree, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	self := t.Add(model.Node{})

	if text[0] == '(' {
		close := matchGroup(text)
		if close < 0 {
			return false
		}
		inner := text[1:close]
		parts, ok := splitTopLevel(inner)
		if !ok {
			return false
		}
		for _, part := range parts {
			child := t.Len()
			if !parseSpeciesNode(t, part) {
				return false
			}
			t.Nodes[self].Children = append(t.Nodes[self].Children, child)
		}
		tail := text[close+1:]
		if strings.ContainsAny(tail, "()") {
			return false
		}
		applySpeciesLabel(&t.Nodes[self], tail)
		return true
	}

	// Leaf: NAME ['#' THETA] [':' LENGTH]. A bare group delimiter here means
	// the surrounding split produced garbage.
	if strings.ContainsAny(text, "()") {
		return false
	}
	applySpeciesLabel(&t.Nodes[self], text)
	return t.Nodes[self].Name != ""
}

// applySpeciesLabel decodes the "[NAME] ['#' THETA] [':' LENGTH]" tail shared
// by leaves and closed groups. An unparsable theta is left unset; an
// unparsable length defaults to 0.
func applySpeciesLabel(n *model.Node, label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	if i := strings.Index(label, ":"); i >= 0 {
		n.Length = parseLength(label[i+1:])
		label = label[:i]
	}
	if i := strings.Index(label, "#"); i >= 0 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(label[i+1:]), 64); err == nil {
			n.Theta = v
			n.HasTheta = true
		}
		label = label[:i]
	}
	n.Name = strings.TrimSpace(label)
}
