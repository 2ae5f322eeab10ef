// Package newick decodes the extended Newick dialects found in MCMC
// posterior sample files.
//
// Two closely related grammars are supported. Species-tree lines carry
// optional per-branch population-size annotations:
//
//	NODE := '(' NODE (',' NODE)* ')' [NAME] ['#' THETA] [':' LENGTH]
//	      | NAME ['#' THETA] [':' LENGTH]
//
// Gene-tree lines carry species/individual-tagged tips and an optional
// bracketed metadata suffix:
//
//	NODE := '(' NODE (',' NODE)* ')' [':' LENGTH] | LEAF
//	LEAF := TAG [':' LENGTH]
//
// Parsing is a pure function of the input text (plus an optional Imap for
// tag-less gene-tree leaves). Malformed structure never panics or returns an
// error: the parsers return a nil tree and the caller reports the sample as
// unreadable.
package newick

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanSampleLine strips the decorations a sampler writes around the tree
// text: a leading sample-index/arrow prefix ("17→") and a trailing repeat
// count after the terminating semicolon ("; 3"). The returned text starts at
// the tree and ends before the semicolon.
func CleanSampleLine(line string) string {
	if i := strings.LastIndex(line, "→"); i >= 0 {
		line = line[i+len("→"):]
	}
	if i := strings.LastIndex(line, ";"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// splitTopLevel splits s on commas at nesting depth zero. Returns nil (and
// false) when parentheses are unbalanced.
func splitTopLevel(s string) ([]string, bool) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	parts = append(parts, s[start:])
	return parts, true
}

// matchGroup returns the index of the ')' matching the '(' at position 0,
// or -1 when the group never closes.
func matchGroup(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseLength parses a branch length. An unparsable length defaults to 0.
func parseLength(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// isSpeciesCode reports whether a tag segment looks like a species code:
// short, alphabetic and all-uppercase. Used to disambiguate the two segments
// of a caret-joined leaf tag.
func isSpeciesCode(s string) bool {
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) || !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
