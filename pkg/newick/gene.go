package newick

import (
	"strconv"
	"strings"

	"github.com/vanderheijden86/coalview/pkg/model"
)

// GeneMeta carries the bracketed per-sample metadata a sampler appends to a
// gene-tree line: the tree height (TH) and the total branch length (TL).
type GeneMeta struct {
	Height      float64
	TotalLength float64
	HasHeight   bool
	HasTotal    bool
}

// extractGeneMeta removes the trailing "[TH=...,TL=...]" annotation from a
// line and decodes it. The annotation is not part of the recursive grammar,
// so it is stripped before structural parsing. Unknown keys are ignored.
func extractGeneMeta(line string) (string, GeneMeta) {
	var meta GeneMeta
	open := strings.LastIndex(line, "[")
	if open < 0 {
		return line, meta
	}
	close := strings.Index(line[open:], "]")
	if close < 0 {
		return line, meta
	}
	close += open
	for _, field := range strings.Split(line[open+1:close], ",") {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "TH":
			meta.Height = v
			meta.HasHeight = true
		case "TL":
			meta.TotalLength = v
			meta.HasTotal = true
		}
	}
	return line[:open] + line[close+1:], meta
}

// ParseGene decodes one gene-tree sample line. Leaf tags are split into
// species and individual codes; tag-less leaves resolve their species through
// imap, and an individual absent from imap leaves the species unresolved
// rather than failing. Returns a nil tree for empty or malformed input; the
// metadata is returned regardless since it is extracted before parsing.
func ParseGene(line string, imap model.Imap) (*model.Tree, GeneMeta) {
	text, meta := extractGeneMeta(line)
	text = CleanSampleLine(text)
	if text == "" {
		return nil, meta
	}
	t := model.NewTree(strings.Count(text, ",")*2 + 1)
	if !parseGeneNode(t, text, imap) {
		return nil, meta
	}
	return t, meta
}

func parseGeneNode(t *model.Tree, text string, imap model.Imap) bool {
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
		parts, ok := splitTopLevel(text[1:close])
		if !ok {
			return false
		}
		for _, part := range parts {
			child := t.Len()
			if !parseGeneNode(t, part, imap) {
				return false
			}
			t.Nodes[self].Children = append(t.Nodes[self].Children, child)
		}
		tail := strings.TrimSpace(text[close+1:])
		if strings.ContainsAny(tail, "()") {
			return false
		}
		if i := strings.Index(tail, ":"); i >= 0 {
			t.Nodes[self].Length = parseLength(tail[i+1:])
		}
		return true
	}

	if strings.ContainsAny(text, "()") {
		return false
	}

	// LEAF := TAG [':' LENGTH]
	tag := text
	if i := strings.Index(text, ":"); i >= 0 {
		t.Nodes[self].Length = parseLength(text[i+1:])
		tag = strings.TrimSpace(text[:i])
	}
	if tag == "" {
		return false
	}
	t.Nodes[self].Name = tag
	t.Nodes[self].Species, t.Nodes[self].Individual = resolveLeafTag(tag, imap)
	return true
}

// resolveLeafTag splits a leaf tag into species and individual codes. Tags
// join the two codes with a caret in either order; the species code is the
// second segment when that segment is short, alphabetic and all-uppercase,
// otherwise the first segment. A tag without a caret names only the
// individual and the species comes from imap; an empty species marks the
// leaf unresolved.
func resolveLeafTag(tag string, imap model.Imap) (species, individual string) {
	first, second, ok := strings.Cut(tag, "^")
	if !ok {
		if sp, found := imap.Species(tag); found {
			return sp, tag
		}
		return "", tag
	}
	if isSpeciesCode(second) {
		return second, first
	}
	return first, second
}
