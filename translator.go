package nbtlai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaguanLabs/nbtlai/notebook"
)

// Translator is the main translation engine.
type Translator struct {
	backend    Backend
	sourceLang string // canonical codes
	targetLang string
	nativeSrc  string // backend codes
	nativeTgt  string
	cache      TranslationCache
	retry      RetryConfig
	context    string
	processors map[notebook.CellKind]ContentProcessor
	observer   func(SpanEvent)
	progress   func(done, total int)
	logger     *slog.Logger
}

// SkipTag marks cells whose source is never translated.
const SkipTag = "notranslate"

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the source language (default "en").
func WithSourceLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithRetryConfig sets the retry policy for backend calls.
func WithRetryConfig(cfg RetryConfig) TranslatorOption {
	return func(t *Translator) {
		t.retry = cfg
	}
}

// WithContext sets a hint passed to backends that can use one.
func WithContext(ctx string) TranslatorOption {
	return func(t *Translator) {
		t.context = ctx
	}
}

// WithProcessor registers the classifier for one cell kind.
// Cells of kinds without a processor pass through unchanged.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processors[processor.CellKind()] = processor
	}
}

// WithObserver registers a function that receives every translated span.
func WithObserver(fn func(SpanEvent)) TranslatorOption {
	return func(t *Translator) {
		t.observer = fn
	}
}

// WithProgress registers a function called after each cell.
func WithProgress(fn func(done, total int)) TranslatorOption {
	return func(t *Translator) {
		t.progress = fn
	}
}

// WithLogger sets the logger (default: discard).
func WithLogger(logger *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

// NewTranslator creates a Translator for targetLang using backend.
// Both languages are validated against the backend's code table here, so an
// unsupported code fails before any request is made.
func NewTranslator(targetLang string, backend Backend, opts ...TranslatorOption) (*Translator, error) {
	t := &Translator{
		backend:    backend,
		targetLang: targetLang,
		sourceLang: "en",
		retry:      DefaultRetryConfig(),
		processors: make(map[notebook.CellKind]ContentProcessor),
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(t)
	}

	if canon, _ := CanonicalLanguage(t.targetLang); canon == AutoDetect {
		return nil, &UnsupportedLanguageError{
			Backend:   backend.Name(),
			Code:      t.targetLang,
			Supported: SupportedLanguages(backend),
		}
	}

	var err error
	if t.nativeSrc, err = ResolveLanguage(backend, t.sourceLang); err != nil {
		return nil, err
	}
	if t.nativeTgt, err = ResolveLanguage(backend, t.targetLang); err != nil {
		return nil, err
	}
	t.sourceLang, _ = CanonicalLanguage(t.sourceLang)
	t.targetLang, _ = CanonicalLanguage(t.targetLang)

	return t, nil
}

// TranslateDocument translates every markdown and code cell of doc in order.
// The returned document shares nothing mutable with doc; on error no
// document is returned.
func (t *Translator) TranslateDocument(ctx context.Context, doc *notebook.Document) (*ProcessedDocument, error) {
	result := &ProcessedDocument{
		TotalCells:    len(doc.Cells),
		MarkdownCells: doc.CountKind(notebook.Markdown),
		CodeCells:     doc.CountKind(notebook.Code),
	}

	t.logger.Info("translating notebook",
		"cells", result.TotalCells,
		"markdown", result.MarkdownCells,
		"code", result.CodeCells,
		"source", t.sourceLang,
		"target", t.targetLang,
		"backend", t.backend.Name(),
	)

	cells := make([]notebook.Cell, len(doc.Cells))
	for i, cell := range doc.Cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		translated, stats, err := t.TranslateCell(ctx, i, cell)
		if err != nil {
			var backendErr *BackendError
			if errors.As(err, &backendErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &CellError{CellIndex: i, Cause: err}
		}

		cells[i] = translated
		result.add(stats)

		if t.progress != nil {
			t.progress(i+1, len(doc.Cells))
		}
	}

	result.Document = doc.WithCells(cells)

	t.logger.Info("notebook translated",
		"spans", result.TotalSpans,
		"translated", result.TranslatedCount,
		"cached", result.CachedCount,
	)

	return result, nil
}

// TranslateCell translates the translatable spans of one cell and returns a
// copy whose source is the reassembled text. index is the cell's position in
// its document and only used for error context and observers.
func (t *Translator) TranslateCell(ctx context.Context, index int, cell notebook.Cell) (notebook.Cell, CellStats, error) {
	processor, ok := t.processors[cell.Kind]
	if !ok || t.IsSourceLang() || cell.HasTag(SkipTag) {
		return cell, CellStats{}, nil
	}

	spans := processor.Classify(cell.Source)
	texts := TranslatableTexts(spans)
	if len(texts) == 0 {
		return cell, CellStats{}, nil
	}

	t.logger.Debug("translating cell", "cell", index, "kind", cell.Kind, "spans", len(texts))

	translations, cached, stats, err := t.translateTexts(ctx, index, texts)
	if err != nil {
		return cell, CellStats{}, err
	}

	var b strings.Builder
	b.Grow(len(cell.Source))
	n := 0
	for _, span := range spans {
		if !span.Translatable() {
			b.WriteString(span.Text)
			continue
		}
		b.WriteString(translations[n])
		if t.observer != nil {
			t.observer(SpanEvent{
				CellIndex:  index,
				SpanIndex:  n,
				CellKind:   cell.Kind,
				Original:   span.Text,
				Translated: translations[n],
				Cached:     cached[n],
			})
		}
		n++
	}

	return cell.WithSource(b.String()), stats, nil
}

// pendingText is a distinct text that missed the cache, with the positions
// of every span carrying it.
type pendingText struct {
	text      string
	positions []int
}

// translateTexts returns one translation per text, using the cache where possible.
func (t *Translator) translateTexts(ctx context.Context, cellIndex int, texts []string) ([]string, []bool, CellStats, error) {
	results := make([]string, len(texts))
	cached := make([]bool, len(texts))
	stats := CellStats{TotalSpans: len(texts)}

	var misses []*pendingText
	seen := make(map[string]*pendingText)

	for i, text := range texts {
		if t.cache != nil {
			if value, ok := t.cache.Get(t.cacheKey(text)); ok {
				results[i] = value
				cached[i] = true
				stats.CachedCount++
				continue
			}
		}

		if p, ok := seen[text]; ok {
			p.positions = append(p.positions, i)
			continue
		}
		p := &pendingText{text: text, positions: []int{i}}
		seen[text] = p
		misses = append(misses, p)
	}

	for _, chunk := range chunkPending(misses, t.backend.Limits()) {
		batch := make([]string, len(chunk))
		for i, p := range chunk {
			batch[i] = p.text
		}

		translated, err := t.request(ctx, cellIndex, chunk[0].positions[0], batch)
		if err != nil {
			return nil, nil, CellStats{}, err
		}

		for i, p := range chunk {
			for _, pos := range p.positions {
				results[pos] = translated[i]
				stats.TranslatedCount++
			}
			if t.cache != nil {
				if err := t.cache.Set(t.cacheKey(p.text), translated[i]); err != nil {
					t.logger.Warn("cache write failed", "err", &CacheError{Message: "set", Cause: err})
				}
			}
		}
	}

	return results, cached, stats, nil
}

// request sends one batch to the backend under the retry policy.
func (t *Translator) request(ctx context.Context, cellIndex, spanIndex int, texts []string) ([]string, error) {
	cfg := t.retry
	userHook := cfg.OnRetry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		t.logger.Warn("translation failed, retrying",
			"backend", t.backend.Name(),
			"cell", cellIndex,
			"span", spanIndex,
			"attempt", attempt,
			"attempts", cfg.Attempts,
			"delay", delay,
			"err", err,
		)
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}

	attempts := 0
	out, err := WithRetry(ctx, cfg, func() ([]string, error) {
		attempts++
		res, err := t.backend.Translate(ctx, TranslateRequest{
			Texts:      texts,
			SourceLang: t.nativeSrc,
			TargetLang: t.nativeTgt,
			Context:    t.context,
		})
		if err != nil {
			return nil, err
		}
		if len(res) != len(texts) {
			return nil, &CountMismatchError{Expected: len(texts), Got: len(res)}
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		return nil, &BackendError{
			Backend:   t.backend.Name(),
			CellIndex: cellIndex,
			SpanIndex: spanIndex,
			Attempts:  attempts,
			Cause:     err,
		}
	}

	return out, nil
}

func (t *Translator) cacheKey(text string) string {
	return CacheKey(HashText(text), t.sourceLang, t.targetLang, t.backend.Name())
}

// chunkPending splits texts into requests that respect the backend limits.
// A single text longer than MaxChars still gets its own request.
func chunkPending(items []*pendingText, limits Limits) [][]*pendingText {
	var chunks [][]*pendingText
	var current []*pendingText
	chars := 0

	for _, item := range items {
		n := utf8.RuneCountInString(item.text)
		full := limits.MaxBatch > 0 && len(current) >= limits.MaxBatch
		tooLong := limits.MaxChars > 0 && len(current) > 0 && chars+n > limits.MaxChars
		if full || tooLong {
			chunks = append(chunks, current)
			current = nil
			chars = 0
		}
		current = append(current, item)
		chars += n
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// IsSourceLang reports whether source and target share a base language,
// in which case cells are returned untouched.
func (t *Translator) IsSourceLang() bool {
	return SameLanguage(t.sourceLang, t.targetLang)
}

// Backend returns the backend requests are sent to.
func (t *Translator) Backend() Backend {
	return t.backend
}

// TargetLang returns the canonical target language.
func (t *Translator) TargetLang() string {
	return t.targetLang
}

// SourceLang returns the canonical source language.
func (t *Translator) SourceLang() string {
	return t.sourceLang
}
