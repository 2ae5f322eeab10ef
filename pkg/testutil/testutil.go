// Package testutil provides shared helpers for coalview tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/newick"
)

// MustParseSpecies parses a species-tree line and fails the test when the
// line is unreadable.
func MustParseSpecies(t *testing.T, line string) *model.Tree {
	t.Helper()
	tree := newick.ParseSpecies(line)
	if tree == nil {
		t.Fatalf("species tree unreadable: %q", line)
	}
	return tree
}

// MustParseGene parses a gene-tree line and fails the test when the line is
// unreadable.
func MustParseGene(t *testing.T, line string, imap model.Imap) *model.Tree {
	t.Helper()
	tree, _ := newick.ParseGene(line, imap)
	if tree == nil {
		t.Fatalf("gene tree unreadable: %q", line)
	}
	return tree
}

// WriteSampleFile writes lines to a sample file under dir and returns its
// path. Every line is newline-terminated.
func WriteSampleFile(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write sample file: %v", err)
	}
	return path
}

// AssertLeafNames verifies the leaf names of a tree in input order.
func AssertLeafNames(t *testing.T, tree *model.Tree, want ...string) {
	t.Helper()
	got := tree.LeafNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d leaves %v, got %d: %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("leaf %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// AssertFloat verifies a float within an absolute tolerance.
func AssertFloat(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: expected %g, got %g", name, want, got)
	}
}

// TreesEqual reports whether two trees have the same topology, names,
// branch lengths and theta values up to tol.
func TreesEqual(a, b *model.Tree, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Len() != b.Len() {
		return false
	}
	return nodesEqual(a, b, model.Root, model.Root, tol)
}

func nodesEqual(a, b *model.Tree, i, j int, tol float64) bool {
	na, nb := &a.Nodes[i], &b.Nodes[j]
	if na.Name != nb.Name || na.HasTheta != nb.HasTheta {
		return false
	}
	if math.Abs(na.Length-nb.Length) > tol {
		return false
	}
	if na.HasTheta && math.Abs(na.Theta-nb.Theta) > tol {
		return false
	}
	if len(na.Children) != len(nb.Children) {
		return false
	}
	for k := range na.Children {
		if !nodesEqual(a, b, na.Children[k], nb.Children[k], tol) {
			return false
		}
	}
	return true
}
