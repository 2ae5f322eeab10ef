package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Imap maps individual codes to species codes. It is loaded once per dataset
// and never mutated afterwards; untagged gene-tree leaves resolve their
// species through it.
type Imap map[string]string

// ParseImap reads a two-column mapping: first whitespace-delimited token is
// the individual, second is the species. Lines with fewer than two tokens are
// ignored. The first mapping for an individual wins.
func ParseImap(r io.Reader) (Imap, error) {
	m := make(Imap)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		if _, ok := m[fields[0]]; !ok {
			m[fields[0]] = fields[1]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading imap: %w", err)
	}
	return m, nil
}

// LoadImap reads an Imap from a file.
func LoadImap(path string) (Imap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening imap: %w", err)
	}
	defer f.Close()
	return ParseImap(f)
}

// Species resolves an individual to its species code. ok is false when the
// individual is unknown; callers treat that as an unresolved leaf, not an
// error.
func (m Imap) Species(individual string) (string, bool) {
	s, ok := m[individual]
	return s, ok
}
