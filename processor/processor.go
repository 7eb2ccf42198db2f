// Package processor classifies notebook cell sources into translatable and
// protected spans.
package processor

import (
	"strings"
	"unicode"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/notebook"
)

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = nbtlai.ContentProcessor

// Span is an alias to the main package type.
type Span = nbtlai.Span

// Defaults returns the markdown and code processors with their default options.
func Defaults() []ContentProcessor {
	return []ContentProcessor{NewMarkdownProcessor(), NewCodeProcessor()}
}

// Classify splits text with the default processor for kind.
// Kinds without a processor yield a single protected span.
func Classify(text string, kind notebook.CellKind) []Span {
	for _, p := range Defaults() {
		if p.CellKind() == kind {
			return p.Classify(text)
		}
	}
	if text == "" {
		return nil
	}
	return []Span{{Kind: nbtlai.SpanProtected, Text: text}}
}

// spanBuilder accumulates spans, merging neighbours of the same kind.
type spanBuilder struct {
	spans []Span
}

func (b *spanBuilder) add(kind nbtlai.SpanKind, text string) {
	if text == "" {
		return
	}
	if n := len(b.spans); n > 0 && b.spans[n-1].Kind == kind {
		b.spans[n-1].Text += text
		return
	}
	b.spans = append(b.spans, Span{Kind: kind, Text: text})
}

func (b *spanBuilder) protect(text string) {
	b.add(nbtlai.SpanProtected, text)
}

// prose adds text that may be translated. Runs never cross a line break,
// surrounding whitespace stays protected and runs without letters are
// protected entirely.
func (b *spanBuilder) prose(text string) {
	for text != "" {
		line, rest := text, ""
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, rest = text[:i+1], text[i+1:]
		}

		core := strings.TrimLeftFunc(line, unicode.IsSpace)
		b.protect(line[:len(line)-len(core)])

		trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
		if hasLetter(trimmed) {
			b.add(nbtlai.SpanTranslatable, trimmed)
		} else {
			b.protect(trimmed)
		}
		b.protect(core[len(trimmed):])

		text = rest
	}
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// lineEnd returns the index of the newline ending the line that contains i,
// or len(s).
func lineEnd(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(s)
}

// nextLine returns the start of the line after the one containing i.
func nextLine(s string, i int) int {
	end := lineEnd(s, i)
	if end < len(s) {
		return end + 1
	}
	return end
}
