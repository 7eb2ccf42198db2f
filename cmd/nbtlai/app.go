package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/cache"
	"github.com/ZaguanLabs/nbtlai/config"
	"github.com/ZaguanLabs/nbtlai/notebook"
	"github.com/ZaguanLabs/nbtlai/provider"
)

type app struct {
	cfg    *config.Config
	opts   *options
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, inputPath string) error {
	doc, err := notebook.ReadFile(inputPath)
	if err != nil {
		return err
	}

	if a.opts.diffFile != "" {
		return a.runDiff(doc, inputPath)
	}
	if a.opts.dryRun {
		return a.runDryRun(doc, inputPath)
	}
	return a.runTranslate(ctx, doc, inputPath)
}

// translateOutput is the JSON form of a completed translation.
type translateOutput struct {
	InputFile       string `json:"input_file"`
	OutputFile      string `json:"output_file"`
	BackupFile      string `json:"backup_file,omitempty"`
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	Translator      string `json:"translator"`
	TotalCells      int    `json:"total_cells"`
	CodeCells       int    `json:"code_cells"`
	MarkdownCells   int    `json:"markdown_cells"`
	TotalSpans      int    `json:"total_spans"`
	TranslatedCount int    `json:"translated_count"`
	CachedCount     int    `json:"cached_count"`
	ElapsedMs       int64  `json:"elapsed_ms"`
}

func (a *app) runTranslate(ctx context.Context, doc *notebook.Document, inputPath string) error {
	backend, err := provider.New(ctx, a.cfg.Backend, a.cfg.ProviderConfig())
	if err != nil {
		return err
	}
	limited := nbtlai.NewRateLimitedBackend(backend, nbtlai.RateLimitConfig{})

	store, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	opts := []nbtlai.TranslatorOption{
		nbtlai.WithSourceLang(a.cfg.Source),
		nbtlai.WithRetryConfig(a.cfg.RetryConfig()),
		nbtlai.WithLogger(a.logger),
	}
	for _, p := range a.cfg.Processors() {
		opts = append(opts, nbtlai.WithProcessor(p))
	}
	if store != nil {
		opts = append(opts, nbtlai.WithCache(store))
	}
	if a.opts.context != "" {
		opts = append(opts, nbtlai.WithContext(a.opts.context))
	}
	if a.cfg.Print {
		opts = append(opts, nbtlai.WithObserver(func(e nbtlai.SpanEvent) {
			fmt.Fprintf(a.stdout, "%s -> %s\n", e.Original, e.Translated)
		}))
	}
	showProgress := !a.opts.jsonOutput && isTerminal(a.stderr)
	if showProgress {
		opts = append(opts, nbtlai.WithProgress(func(done, total int) {
			fmt.Fprintf(a.stderr, "\rTranslating cells: %d/%d", done, total)
		}))
	}

	translator, err := nbtlai.NewTranslator(a.cfg.Target, limited, opts...)
	if err != nil {
		return err
	}

	if !a.opts.jsonOutput {
		fmt.Fprintf(a.stdout, "Total cells: %d Code cells: %d Markdown cells: %d\n",
			len(doc.Cells), doc.CountKind(notebook.Code), doc.CountKind(notebook.Markdown))
	}

	start := time.Now()
	result, err := translator.TranslateDocument(ctx, doc)
	if showProgress {
		fmt.Fprintln(a.stderr)
	}
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	elapsed := time.Since(start)

	plan := planOutput(inputPath, a.cfg.Target, a.opts.output, a.cfg.Output.Rename)
	if err := writeTranslation(plan, result.Document, notebook.MarshalOptions{Indent: a.cfg.Output.Indent}); err != nil {
		return err
	}

	if store != nil && a.cfg.Cache.File != "" {
		if err := exportCache(store, a.cfg.Cache.File, a.cfg); err != nil {
			a.logger.Warn("cache export failed", "file", a.cfg.Cache.File, "err", err)
		}
	}

	if a.opts.jsonOutput {
		return writeJSON(a.stdout, translateOutput{
			InputFile:       inputPath,
			OutputFile:      plan.output,
			BackupFile:      plan.backup,
			SourceLang:      translator.SourceLang(),
			TargetLang:      translator.TargetLang(),
			Translator:      backend.Name(),
			TotalCells:      result.TotalCells,
			CodeCells:       result.CodeCells,
			MarkdownCells:   result.MarkdownCells,
			TotalSpans:      result.TotalSpans,
			TranslatedCount: result.TranslatedCount,
			CachedCount:     result.CachedCount,
			ElapsedMs:       elapsed.Milliseconds(),
		})
	}

	if plan.backup != "" {
		fmt.Fprintf(a.stdout, "%s has been renamed as %s\n", inputPath, plan.backup)
	}
	fmt.Fprintf(a.stdout, "The %s translation has been saved as %s\n", a.cfg.Target, plan.output)

	fmt.Fprintf(a.stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprint(a.stderr, renderStats(result))
	return nil
}

// openCache opens the configured store. A cache file without a store gets
// an in-memory one so the file can still be loaded and saved.
func (a *app) openCache(ctx context.Context) (cache.Store, error) {
	store, err := cache.Open(ctx, a.cfg.CacheConfig())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	file := a.cfg.Cache.File
	if file == "" {
		return store, nil
	}
	if store == nil {
		store = cache.NewInMemoryCache(a.cfg.Cache.TTLSeconds)
	}

	res, err := cache.NewImporter(store).ImportFromFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Debug("cache file not found, starting empty", "file", file)
	case err != nil:
		_ = store.Close()
		return nil, fmt.Errorf("loading cache file: %w", err)
	default:
		a.logger.Debug("cache file loaded", "file", file, "imported", res.Imported, "failed", res.Failed)
	}
	return store, nil
}

func exportCache(store cache.Store, path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return cache.NewExporter(store).ExportToFile(path, map[string]string{
		"source":     cfg.Source,
		"target":     cfg.Target,
		"translator": cfg.Backend,
		"version":    nbtlai.Version,
	})
}

// dryRunOutput is the JSON form of a dry run.
type dryRunOutput struct {
	InputFile  string        `json:"input_file"`
	TargetLang string        `json:"target_lang"`
	SpanCount  int           `json:"span_count"`
	Spans      []dryRunEntry `json:"spans"`
}

type dryRunEntry struct {
	Cell int    `json:"cell"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (a *app) runDryRun(doc *notebook.Document, inputPath string) error {
	spans := nbtlai.CollectSpans(doc, a.cfg.Processors())

	if a.opts.jsonOutput {
		out := dryRunOutput{
			InputFile:  filepath.Base(inputPath),
			TargetLang: a.cfg.Target,
			SpanCount:  len(spans),
			Spans:      make([]dryRunEntry, len(spans)),
		}
		for i, s := range spans {
			out.Spans[i] = dryRunEntry{Cell: s.CellIndex, Kind: string(s.CellKind), Text: s.Text}
		}
		return writeJSON(a.stdout, out)
	}

	fmt.Fprintf(a.stdout, "Dry run: %s -> %s\n", filepath.Base(inputPath), a.cfg.Target)
	fmt.Fprintf(a.stdout, "Total cells: %d Code cells: %d Markdown cells: %d\n",
		len(doc.Cells), doc.CountKind(notebook.Code), doc.CountKind(notebook.Markdown))
	fmt.Fprintf(a.stdout, "Found %d translatable spans:\n", len(spans))
	if len(spans) > 0 {
		fmt.Fprint(a.stdout, renderSpans(spans))
	}
	return nil
}

// diffOutput is the JSON form of a diff.
type diffOutput struct {
	InputFile        string           `json:"input_file"`
	PreviousFile     string           `json:"previous_file"`
	TargetLang       string           `json:"target_lang"`
	Stats            nbtlai.DiffStats `json:"stats"`
	NeedsTranslation []string         `json:"needs_translation"`
	Added            []string         `json:"added,omitempty"`
	Removed          []string         `json:"removed,omitempty"`
	Modified         []modifiedText   `json:"modified,omitempty"`
}

type modifiedText struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (a *app) runDiff(doc *notebook.Document, inputPath string) error {
	previous, err := notebook.ReadFile(a.opts.diffFile)
	if err != nil {
		return fmt.Errorf("reading previous version: %w", err)
	}

	diff := nbtlai.DiffDocuments(previous, doc, a.cfg.Processors())
	stats := diff.Stats()

	if a.opts.jsonOutput {
		out := diffOutput{
			InputFile:        filepath.Base(inputPath),
			PreviousFile:     filepath.Base(a.opts.diffFile),
			TargetLang:       a.cfg.Target,
			Stats:            stats,
			NeedsTranslation: []string{},
		}
		for _, s := range diff.NeedsTranslation() {
			out.NeedsTranslation = append(out.NeedsTranslation, s.Text)
		}
		for _, s := range diff.Added {
			out.Added = append(out.Added, s.Text)
		}
		for _, s := range diff.Removed {
			out.Removed = append(out.Removed, s.Text)
		}
		for _, m := range diff.Modified {
			out.Modified = append(out.Modified, modifiedText{Old: m.Old.Text, New: m.New.Text})
		}
		return writeJSON(a.stdout, out)
	}

	fmt.Fprintf(a.stdout, "Diff: %s vs %s\n", filepath.Base(inputPath), filepath.Base(a.opts.diffFile))
	fmt.Fprintf(a.stdout, "Target language: %s\n\n", a.cfg.Target)
	fmt.Fprint(a.stdout, renderDiffStats(stats))

	if !diff.HasChanges() {
		fmt.Fprintln(a.stdout, "No changes detected. All translations are up to date.")
		return nil
	}

	fmt.Fprintf(a.stdout, "Needs translation: %d spans\n", len(diff.NeedsTranslation()))
	fmt.Fprint(a.stdout, renderDiffChanges(diff))
	return nil
}
