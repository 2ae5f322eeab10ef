package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/coalview/internal/datasource"
	"github.com/vanderheijden86/coalview/pkg/config"
	"github.com/vanderheijden86/coalview/pkg/debug"
	"github.com/vanderheijden86/coalview/pkg/embed"
	"github.com/vanderheijden86/coalview/pkg/export"
	"github.com/vanderheijden86/coalview/pkg/loader"
	"github.com/vanderheijden86/coalview/pkg/metrics"
	"github.com/vanderheijden86/coalview/pkg/model"
	"github.com/vanderheijden86/coalview/pkg/population"
	"github.com/vanderheijden86/coalview/pkg/sampleindex"
	"github.com/vanderheijden86/coalview/pkg/version"
	"github.com/vanderheijden86/coalview/pkg/watcher"
)

func main() {
	datasetDir := flag.String("dataset", "", "Dataset directory (auto-discovers species, loci and imap files)")
	speciesPath := flag.String("species", "", "Species-tree sample file")
	genePaths := flag.String("genes", "", "Comma-separated gene-tree sample files")
	imapPath := flag.String("imap", "", "Individual-to-species mapping file")
	sampleNum := flag.Int("sample", -1, "Sample number to render (default: last)")
	burnIn := flag.Float64("burnin", -1, "Fraction of leading samples to skip for the depth scale")
	skipFirst := flag.Bool("skip-first", false, "Treat the first line of each sample file as a header")
	outPath := flag.String("out", "overlay.svg", "Output image path (.svg or .png)")
	reportPath := flag.String("report", "", "Write a JSON violation report to this path")
	countOnly := flag.Bool("count", false, "Print the number of samples and exit")
	watchFlag := flag.Bool("watch", false, "Re-render whenever the species sample file changes")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *help {
		fmt.Println("Usage: coalview [options]")
		fmt.Println("\nOverlays gene-tree coalescent histories onto a species tree's")
		fmt.Println("ancestral-population intervals, from MCMC posterior sample files.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("coalview %s\n", version.Version)
		os.Exit(0)
	}

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false, Prefix: "coalview"})

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		logger.Warn("config unreadable, using defaults", "err", cfgErr)
		cfg = config.DefaultConfig()
	}
	if *burnIn < 0 {
		*burnIn = cfg.View.BurnIn
	}

	app := &app{
		cfg:       cfg,
		logger:    logger,
		sample:    *sampleNum,
		burnIn:    *burnIn,
		skipFirst: *skipFirst,
		outPath:   *outPath,
		report:    *reportPath,
	}

	if err := app.resolveInputs(*datasetDir, *speciesPath, *genePaths, *imapPath); err != nil {
		logger.Error("cannot resolve dataset", "err", err)
		os.Exit(1)
	}

	if cfg.Index.Cache {
		if path := config.CachePath(); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
				if cache, err := sampleindex.OpenCache(path); err == nil {
					app.cache = cache
					defer cache.Close()
				} else {
					logger.Warn("offset cache unavailable", "err", err)
				}
			}
		}
	}

	ctx := context.Background()
	if err := app.open(ctx); err != nil {
		logger.Error("cannot open sample files", "err", err)
		os.Exit(1)
	}
	defer app.close()

	if *countOnly {
		fmt.Printf("%s: %d samples\n", app.speciesPath, app.species.Count())
		for _, l := range app.loci {
			fmt.Printf("%s: %d samples\n", l.Name, l.File.Count())
		}
		return
	}

	if err := app.render(ctx); err != nil {
		logger.Error("render failed", "err", err)
		os.Exit(1)
	}

	if *watchFlag {
		app.watch(ctx)
	}

	if debug.Enabled() {
		for _, s := range metrics.AllTimingStats() {
			debug.Log("%s: n=%d total=%.1fms avg=%.2fms", s.Name, s.Count, s.TotalMs, s.AvgMs)
		}
	}
}

// app holds the resolved inputs and open files of one invocation.
type app struct {
	cfg    config.Config
	logger *log.Logger
	cache  *sampleindex.Cache

	speciesPath string
	genePaths   []string
	geneNames   []string
	imapPath    string

	sample    int
	burnIn    float64
	skipFirst bool
	outPath   string
	report    string

	species *loader.SampleFile
	loci    []*loader.Locus
	imap    model.Imap
}

// resolveInputs fills the file paths either from dataset discovery or from
// the explicit flags.
func (a *app) resolveInputs(dataset, species, genes, imap string) error {
	if dataset != "" {
		sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
			Dir:                    dataset,
			ValidateAfterDiscovery: true,
			Logger: func(msg string) {
				a.logger.Debug(msg)
			},
		})
		if err != nil {
			return err
		}
		ds, err := datasource.SelectDataset(sources)
		if err != nil {
			return err
		}
		a.speciesPath = ds.Species.Path
		for _, l := range ds.Loci {
			a.genePaths = append(a.genePaths, l.Path)
			a.geneNames = append(a.geneNames, locusName(l.Path))
		}
		if ds.Imap != nil {
			a.imapPath = ds.Imap.Path
		}
		a.cfg.Touch(dataset)
		if err := config.Save(a.cfg); err != nil {
			a.logger.Debug("could not update recent datasets", "err", err)
		}
		return nil
	}

	if species == "" {
		return fmt.Errorf("either --dataset or --species is required")
	}
	a.speciesPath = species
	for _, p := range strings.Split(genes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			a.genePaths = append(a.genePaths, p)
			a.geneNames = append(a.geneNames, locusName(p))
		}
	}
	a.imapPath = imap
	return nil
}

func locusName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *app) open(ctx context.Context) error {
	opts := loader.OpenOptions{
		SkipFirstLine: a.skipFirst,
		ChunkSize:     a.cfg.Index.ChunkSize,
		Cache:         a.cache,
		Logger:        a.logger,
	}

	species, err := loader.Open(ctx, a.speciesPath, opts)
	if err != nil {
		return err
	}
	a.species = species

	if a.imapPath != "" {
		imap, err := model.LoadImap(a.imapPath)
		if err != nil {
			species.Close()
			return err
		}
		a.imap = imap
	}

	loci, err := loader.OpenLoci(ctx, a.genePaths, a.geneNames, a.cfg.Index.BatchLimit, opts)
	if err != nil {
		species.Close()
		return err
	}
	a.loci = loci
	return nil
}

func (a *app) close() {
	if a.species != nil {
		a.species.Close()
	}
	loader.CloseLoci(a.loci)
}

// lociReport is the per-locus block of the JSON violation report.
type lociReport struct {
	Name       string            `json:"name"`
	Sample     int               `json:"sample"`
	Unreadable bool              `json:"unreadable,omitempty"`
	Violations []embed.Violation `json:"violations"`
	Unresolved int               `json:"unresolved_leaves,omitempty"`
}

type renderReport struct {
	Species string       `json:"species"`
	Sample  int          `json:"sample"`
	Depth   float64      `json:"depth"`
	Loci    []lociReport `json:"loci"`
}

// render builds the full overlay for the selected sample and writes the
// image (and optional report) atomically, so a failed render leaves any
// previous output untouched.
func (a *app) render(ctx context.Context) error {
	count := a.species.Count()
	if count == 0 {
		return fmt.Errorf("%s holds no samples", a.speciesPath)
	}
	sample := a.sample
	if sample < 0 {
		sample = count - 1
	}
	if sample >= count {
		return fmt.Errorf("sample %d out of range [0,%d)", sample, count)
	}

	est, err := loader.EstimateDepth(ctx, a.species, a.cfg.View.DepthSample, a.burnIn)
	if err != nil {
		return err
	}
	a.logger.Info("depth scale estimated",
		"depth", est.Depth, "max_height", est.MaxHeight, "sampled", est.Sampled)

	tree, err := a.species.SpeciesTree(sample)
	if err != nil {
		return err
	}
	if tree == nil {
		return fmt.Errorf("species sample %d is unreadable", sample)
	}

	width := float64(a.cfg.View.Width)
	height := float64(a.cfg.View.Height)
	scale := embed.TimeScale{TipY: height - 40, PerUnit: (height - 100) / est.Depth}
	layout := embed.LayoutSpecies(tree, 60, width-90, scale)
	popModel := population.NewModel(tree, est.Depth)
	palette := population.NewPalette()
	palette.Reset()

	report := renderReport{Species: a.speciesPath, Sample: sample, Depth: est.Depth}
	var genes []*embed.GeneEmbedding
	for _, l := range a.loci {
		entry := lociReport{Name: l.Name, Sample: sample}
		idx := sample
		if c := l.File.Count(); idx >= c {
			// Loci may hold fewer samples than the species file.
			idx = c - 1
			entry.Sample = idx
		}
		if idx < 0 {
			entry.Unreadable = true
			report.Loci = append(report.Loci, entry)
			continue
		}
		gt, _, err := l.File.GeneTree(idx, a.imap)
		if err != nil {
			return err
		}
		if gt == nil {
			a.logger.Warn("gene sample unreadable", "locus", l.Name, "sample", idx)
			entry.Unreadable = true
			report.Loci = append(report.Loci, entry)
			continue
		}
		g := embed.EmbedGene(gt, embed.EmbedOptions{
			Bands: layout.Bands,
			Scale: scale,
			Model: popModel,
		})
		genes = append(genes, g)
		entry.Violations = g.Violations
		entry.Unresolved = len(g.Unresolved)
		report.Loci = append(report.Loci, entry)
		if len(g.Violations) > 0 {
			a.logger.Warn("containment violations", "locus", l.Name, "count", len(g.Violations))
		}
	}

	if err := a.writeImage(layout, popModel, palette, genes, est.Depth); err != nil {
		return err
	}
	a.logger.Info("overlay written", "path", a.outPath, "loci", len(genes))

	if a.report != "" {
		if err := writeReport(a.report, report); err != nil {
			return err
		}
		a.logger.Info("report written", "path", a.report)
	}
	return nil
}

func (a *app) writeImage(layout *embed.SpeciesLayout, popModel *population.Model,
	palette *population.Palette, genes []*embed.GeneEmbedding, depth float64) error {

	tmp := a.outPath + ".tmp" + filepath.Ext(a.outPath)
	err := export.SaveOverlay(export.OverlayOptions{
		Path:    tmp,
		Format:  strings.TrimPrefix(filepath.Ext(a.outPath), "."),
		Title:   fmt.Sprintf("%s @ sample %d", filepath.Base(a.speciesPath), a.sampleShown()),
		Layout:  layout,
		Model:   popModel,
		Genes:   genes,
		Palette: palette,
		Width:   a.cfg.View.Width,
		Height:  a.cfg.View.Height,
		Depth:   depth,
	})
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, a.outPath)
}

func (a *app) sampleShown() int {
	if a.sample >= 0 {
		return a.sample
	}
	if a.species != nil && a.species.Count() > 0 {
		return a.species.Count() - 1
	}
	return 0
}

func writeReport(path string, report renderReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return os.Rename(tmp, path)
}

// watch re-renders on every change to the species sample file until
// interrupted. A change invalidates the cached offsets first; the stale
// index is discarded, never patched.
func (a *app) watch(ctx context.Context) {
	w, err := watcher.New(a.speciesPath,
		watcher.WithOnError(func(err error) {
			a.logger.Warn("watch error", "err", err)
		}))
	if err != nil {
		a.logger.Error("cannot watch sample file", "err", err)
		return
	}
	if err := w.Start(); err != nil {
		a.logger.Error("cannot start watcher", "err", err)
		return
	}
	defer w.Stop()
	a.logger.Info("watching for new samples", "path", a.speciesPath, "polling", w.IsPolling())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return
		case <-w.Changed():
			if a.cache != nil {
				if err := a.cache.Invalidate(a.speciesPath); err != nil {
					a.logger.Debug("cache invalidation failed", "err", err)
				}
			}
			a.close()
			if err := a.open(ctx); err != nil {
				// Keep the previous image; just report the failure.
				a.logger.Error("reload failed", "err", err)
				continue
			}
			if err := a.render(ctx); err != nil {
				a.logger.Error("render failed", "err", err)
			}
		}
	}
}
