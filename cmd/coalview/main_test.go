package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vanderheijden86/coalview/pkg/config"
	"github.com/vanderheijden86/coalview/pkg/testutil"
)

func TestLocusName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/locus1.trees", "locus1"},
		{"locus2.gtree", "locus2"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := locusName(tt.path); got != tt.want {
			t.Errorf("locusName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveInputsExplicit(t *testing.T) {
	a := &app{cfg: config.DefaultConfig(), logger: log.New(os.Stderr)}
	err := a.resolveInputs("", "run.mcmc", "l1.trees, l2.trees,", "Imap.txt")
	if err != nil {
		t.Fatalf("resolveInputs: %v", err)
	}
	if a.speciesPath != "run.mcmc" || a.imapPath != "Imap.txt" {
		t.Errorf("paths = %q / %q", a.speciesPath, a.imapPath)
	}
	if len(a.genePaths) != 2 || a.geneNames[1] != "l2" {
		t.Errorf("genes = %v names = %v", a.genePaths, a.geneNames)
	}

	if err := (&app{logger: a.logger}).resolveInputs("", "", "", ""); err == nil {
		t.Error("neither dataset nor species should fail")
	}
}

func TestRenderEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "xdg-state"))
	testutil.WriteSampleFile(t, dir, "run.mcmc", []string{
		"((A:1,B:1)AB:0.5,C:1.5)R:0;",
		"((A:0.9,B:0.9)AB:0.6,C:1.5)R:0;",
	})
	testutil.WriteSampleFile(t, dir, "locus1.trees", []string{
		"((A^a1:1.2,B^b1:1.2):0.5,C^c1:1.7);",
		"((A^a1:0.4,C^c1:0.4):1.3,B^b1:1.7);",
	})
	testutil.WriteSampleFile(t, dir, "Imap.txt", []string{"a1 A", "b1 B", "c1 C"})

	out := filepath.Join(dir, "overlay.svg")
	report := filepath.Join(dir, "report.json")
	a := &app{
		cfg:     config.DefaultConfig(),
		logger:  log.New(os.Stderr),
		sample:  -1,
		burnIn:  0,
		outPath: out,
		report:  report,
	}
	if err := a.resolveInputs(dir, "", "", ""); err != nil {
		t.Fatalf("resolveInputs: %v", err)
	}
	if a.speciesPath == "" || len(a.genePaths) != 1 || a.imapPath == "" {
		t.Fatalf("discovery incomplete: %+v", a)
	}

	ctx := context.Background()
	if err := a.open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.close()

	if err := a.render(ctx); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("overlay not written: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output is not SVG")
	}

	rep, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	// The second sample coalesces A and C at 0.4; they are never a
	// population of their own, so the report must carry a violation.
	if !strings.Contains(string(rep), `"species"`) {
		t.Errorf("report missing violation records: %s", rep)
	}
	if !strings.Contains(string(rep), `"locus1"`) {
		t.Errorf("report missing locus name: %s", rep)
	}
}
