package nbtlai

import (
	"strings"

	"github.com/ZaguanLabs/nbtlai/notebook"
)

// SpanKind tags a span as eligible for translation or not.
type SpanKind int

const (
	// SpanProtected marks text that must reach the output unchanged.
	SpanProtected SpanKind = iota
	// SpanTranslatable marks text that is sent to the backend.
	SpanTranslatable
)

func (k SpanKind) String() string {
	if k == SpanTranslatable {
		return "translatable"
	}
	return "protected"
}

// Span is a contiguous run of a cell's source.
type Span struct {
	Kind SpanKind
	Text string
}

// Translatable reports whether the span is sent to the backend.
func (s Span) Translatable() bool {
	return s.Kind == SpanTranslatable
}

// JoinSpans concatenates span texts in order.
// For spans produced by a classifier this reproduces the classified source.
func JoinSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// TranslatableTexts returns the texts of the translatable spans in order.
func TranslatableTexts(spans []Span) []string {
	var texts []string
	for _, s := range spans {
		if s.Translatable() {
			texts = append(texts, s.Text)
		}
	}
	return texts
}

// ContentProcessor classifies the source of one cell kind into spans.
type ContentProcessor interface {
	Classify(source string) []Span
	CellKind() notebook.CellKind
}

// SpanEvent describes one translated span. It is delivered to observers
// as soon as the span's translation is known.
type SpanEvent struct {
	CellIndex  int
	SpanIndex  int // index among the cell's translatable spans
	CellKind   notebook.CellKind
	Original   string
	Translated string
	Cached     bool
}

// CellStats counts the work done on a single cell.
type CellStats struct {
	TotalSpans      int // translatable spans found
	TranslatedCount int // spans translated by the backend
	CachedCount     int // spans served from the cache
}

func (s *CellStats) add(o CellStats) {
	s.TotalSpans += o.TotalSpans
	s.TranslatedCount += o.TranslatedCount
	s.CachedCount += o.CachedCount
}

// ProcessedDocument is the result of translating a notebook.
type ProcessedDocument struct {
	Document      *notebook.Document
	TotalCells    int
	MarkdownCells int
	CodeCells     int
	CellStats
}
