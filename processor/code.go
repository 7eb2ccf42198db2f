package processor

import (
	"strings"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/notebook"
)

// DefaultSkipPrefixes are comment openers whose comments are never
// translated: shebangs, encoding lines, linter and type pragmas, cell
// markers and quarto options.
var DefaultSkipPrefixes = []string{
	"#<---",
	"#!",
	"# -*-",
	"# noqa",
	"# type:",
	"# pragma",
	"# %%",
	"#%%",
	"#|",
}

// CodeProcessor classifies Python code cells.
//
// Comment text and the literal text of f-strings passed to a message call
// (print by default) are translatable; all other code is protected.
// Placeholders and escape sequences inside those f-strings stay protected.
type CodeProcessor struct {
	calls        []string
	plainStrings bool
	skipPrefixes []string
}

// CodeOption configures the code processor.
type CodeOption func(*CodeProcessor)

// WithMessageCalls sets the functions whose f-string argument is translated.
// Dotted names such as "logger.info" are allowed.
func WithMessageCalls(names ...string) CodeOption {
	return func(p *CodeProcessor) {
		p.calls = names
	}
}

// WithPlainStrings enables/disables translation of plain (non f-) string
// literals passed to message calls.
func WithPlainStrings(enabled bool) CodeOption {
	return func(p *CodeProcessor) {
		p.plainStrings = enabled
	}
}

// WithSkipPrefixes replaces the comment openers that mark untranslated comments.
func WithSkipPrefixes(prefixes ...string) CodeOption {
	return func(p *CodeProcessor) {
		p.skipPrefixes = prefixes
	}
}

// NewCodeProcessor creates a code processor.
func NewCodeProcessor(opts ...CodeOption) *CodeProcessor {
	p := &CodeProcessor{
		calls:        []string{"print"},
		skipPrefixes: DefaultSkipPrefixes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CellKind returns notebook.Code.
func (p *CodeProcessor) CellKind() notebook.CellKind {
	return notebook.Code
}

// Classify splits a code source into spans, one line at a time. Only
// triple-quoted strings carry state across lines.
func (p *CodeProcessor) Classify(source string) []Span {
	var b spanBuilder
	triple := ""

	for line := range strings.Lines(source) {
		i, start := 0, 0

		if triple != "" {
			end := findQuote(line, 0, triple)
			if end < 0 {
				b.protect(line)
				continue
			}
			i = end + len(triple)
			triple = ""
		}

		for i < len(line) {
			c := line[i]
			if c == '#' {
				b.protect(line[start:i])
				p.comment(&b, line[i:])
				start = len(line)
				break
			}
			if c != '"' && c != '\'' {
				i++
				continue
			}

			q := line[i : i+1]
			if strings.HasPrefix(line[i:], strings.Repeat(q, 3)) {
				q = strings.Repeat(q, 3)
			}
			end := findQuote(line, i+len(q), q)
			if end < 0 {
				if len(q) == 3 {
					triple = q
				}
				break
			}

			if len(q) == 1 {
				ps := prefixStart(line, i)
				if fmode, ok := p.messageString(line, ps, i, end); ok {
					b.protect(line[start : i+1])
					messageBody(&b, line[i+1:end], fmode)
					start = end
				}
			}
			i = end + len(q)
		}

		b.protect(line[start:])
	}

	return b.spans
}

// comment classifies text starting at a # and running to the end of line.
func (p *CodeProcessor) comment(b *spanBuilder, text string) {
	for _, prefix := range p.skipPrefixes {
		if strings.HasPrefix(text, prefix) {
			b.protect(text)
			return
		}
	}
	n := runLength(text, '#')
	b.protect(text[:n])
	b.prose(text[n:])
}

// messageString reports whether the string literal quoted at line[q] and
// closed at line[end] is the first argument of a message call whose text may
// be translated, and whether it is an f-string.
//
// Strings containing # or the other quote character are left alone, as are
// byte strings.
func (p *CodeProcessor) messageString(line string, ps, q, end int) (fmode bool, ok bool) {
	prefix := strings.ToLower(line[ps:q])
	if strings.Contains(prefix, "b") {
		return false, false
	}
	fmode = strings.Contains(prefix, "f")
	if !fmode && !p.plainStrings {
		return false, false
	}

	other := "'"
	if line[q] == '\'' {
		other = `"`
	}
	if strings.ContainsAny(line[q+1:end], "#"+other) {
		return false, false
	}

	before := strings.TrimRight(line[:ps], " \t")
	if !strings.HasSuffix(before, "(") {
		return false, false
	}
	before = strings.TrimRight(before[:len(before)-1], " \t")
	for _, name := range p.calls {
		k := len(before) - len(name)
		if k < 0 || before[k:] != name {
			continue
		}
		// A dotted name may itself be an attribute (self.logger.info).
		if k == 0 || !isIdentByte(before[k-1]) && (before[k-1] != '.' || strings.Contains(name, ".")) {
			return fmode, true
		}
	}
	return false, false
}

// messageBody classifies the inside of a message string. Escape sequences
// are protected; in f-strings so are {placeholders} and the {{ }} escapes.
func messageBody(b *spanBuilder, body string, fmode bool) {
	lit := 0
	protect := func(j, end int) int {
		if j > lit {
			b.prose(body[lit:j])
		}
		b.protect(body[j:end])
		lit = end
		return end
	}

	for j := 0; j < len(body); {
		switch {
		case body[j] == '\\':
			j = protect(j, min(j+2, len(body)))
		case fmode && (strings.HasPrefix(body[j:], "{{") || strings.HasPrefix(body[j:], "}}")):
			j = protect(j, j+2)
		case fmode && body[j] == '{':
			j = protect(j, placeholderEnd(body, j))
		default:
			j++
		}
	}
	if lit < len(body) {
		b.prose(body[lit:])
	}
}

// placeholderEnd returns the end of the replacement field opened at
// body[open], honouring nested braces. An unclosed field runs to the end.
func placeholderEnd(body string, open int) int {
	depth := 0
	for j := open; j < len(body); j++ {
		switch body[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(body)
}

// findQuote returns the index of the first unescaped q in line at or after
// from, or -1.
func findQuote(line string, from int, q string) int {
	for j := from; j < len(line); j++ {
		if line[j] == '\\' {
			j++
			continue
		}
		if strings.HasPrefix(line[j:], q) {
			return j
		}
	}
	return -1
}

// prefixStart returns where the string prefix (f, r, b, u and their
// combinations) before the quote at q begins.
func prefixStart(line string, q int) int {
	ps := q
	for ps > 0 && q-ps < 2 && strings.IndexByte("rRbBuUfF", line[ps-1]) >= 0 {
		ps--
	}
	if ps > 0 && isIdentByte(line[ps-1]) {
		return q
	}
	return ps
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || isASCIILetter(c) || c >= 0x80
}

var _ nbtlai.ContentProcessor = (*CodeProcessor)(nil)
