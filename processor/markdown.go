package processor

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/notebook"
)

// MarkdownProcessor classifies markdown cells.
//
// Fenced code blocks and math (inline $…$, display $$…$$, \[…\], \(…\) and
// \begin{env}…\end{env}) are always protected. Inline math never spans
// lines: a $ without a closer protects the rest of its line. Other openers
// without a closer protect up to the next fenced block, or the rest of the
// cell. Everything else is prose, except for the markdown syntax that the
// options below protect.
type MarkdownProcessor struct {
	inlineCode bool
	links      bool
	html       bool
	structure  bool
}

// MarkdownOption configures the markdown processor.
type MarkdownOption func(*MarkdownProcessor)

// WithInlineCode enables/disables protection of `inline code` spans.
func WithInlineCode(enabled bool) MarkdownOption {
	return func(p *MarkdownProcessor) {
		p.inlineCode = enabled
	}
}

// WithLinks enables/disables protection of link and image targets.
// The link text itself stays translatable.
func WithLinks(enabled bool) MarkdownOption {
	return func(p *MarkdownProcessor) {
		p.links = enabled
	}
}

// WithHTML enables/disables protection of inline HTML tags, comments and autolinks.
func WithHTML(enabled bool) MarkdownOption {
	return func(p *MarkdownProcessor) {
		p.html = enabled
	}
}

// WithStructure enables/disables protection of heading markers, list
// bullets, quote markers, table pipes and horizontal rules.
func WithStructure(enabled bool) MarkdownOption {
	return func(p *MarkdownProcessor) {
		p.structure = enabled
	}
}

// NewMarkdownProcessor creates a markdown processor. All protections are on
// by default.
func NewMarkdownProcessor(opts ...MarkdownOption) *MarkdownProcessor {
	p := &MarkdownProcessor{
		inlineCode: true,
		links:      true,
		html:       true,
		structure:  true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CellKind returns notebook.Markdown.
func (p *MarkdownProcessor) CellKind() notebook.CellKind {
	return notebook.Markdown
}

// Classify splits a markdown source into spans.
func (p *MarkdownProcessor) Classify(source string) []Span {
	s := &mdScanner{
		src:       source,
		opts:      p,
		handled:   -1,
		linkClose: -1,
	}
	return s.run()
}

type mdState int

const (
	mdPlain mdState = iota
	mdFence
	mdMath       // closed by a fixed delimiter
	mdInlineMath // closed by the next unescaped $ on the same line
)

type mdScanner struct {
	src   string
	opts  *MarkdownProcessor
	b     spanBuilder
	state mdState

	pos    int    // next byte to examine
	plain  int    // start of pending prose
	mark   int    // start of the open protected region
	closer string // delimiter ending mdMath
	fence  string // backtick or tilde run that opened mdFence

	handled   int  // last line start whose prefix was examined
	table     bool // current line is a table row
	linkClose int  // index of the ] ending the current link text
	linkEnd   int  // end of the current link target
}

func (s *mdScanner) run() []Span {
	for s.pos < len(s.src) {
		switch s.state {
		case mdPlain:
			s.scanPlain()
		case mdFence:
			s.scanFence()
		case mdMath:
			s.scanMath()
		case mdInlineMath:
			s.scanInlineMath()
		}
	}

	if s.state != mdPlain {
		s.b.protect(s.src[s.mark:])
	} else {
		s.flush(len(s.src))
	}
	return s.b.spans
}

// flush emits pending prose up to end.
func (s *mdScanner) flush(end int) {
	if end > s.plain {
		s.b.prose(s.src[s.plain:end])
	}
	s.plain = end
}

// protectRange emits src[start:end] as protected and resumes after it.
func (s *mdScanner) protectRange(start, end int) {
	s.flush(start)
	s.b.protect(s.src[start:end])
	s.pos = end
	s.plain = end
}

// open starts a protected region at start whose opener ends at after.
func (s *mdScanner) open(state mdState, start, after int, closer string) {
	s.flush(start)
	s.state = state
	s.mark = start
	s.pos = after
	s.closer = closer
}

// close ends the open protected region at end.
func (s *mdScanner) close(end int) {
	s.b.protect(s.src[s.mark:end])
	s.state = mdPlain
	s.pos = end
	s.plain = end
}

func (s *mdScanner) scanPlain() {
	for s.pos < len(s.src) {
		i := s.pos
		if s.linkClose >= 0 && i > s.linkClose {
			s.linkClose = -1
		}

		if (i == 0 || s.src[i-1] == '\n') && s.handled != i {
			s.handled = i
			if s.lineStart(i) {
				return
			}
			continue
		}

		if i == s.linkClose {
			s.linkClose = -1
			s.protectRange(i, s.linkEnd)
			continue
		}

		rest := s.src[i:]
		switch c := s.src[i]; {
		case c == '\\':
			if env, ok := environment(rest); ok {
				s.open(mdMath, i, i+len(`\begin{`)+len(env)+1, `\end{`+env+`}`)
				return
			}
			if strings.HasPrefix(rest, `\[`) {
				s.open(mdMath, i, i+2, `\]`)
				return
			}
			if strings.HasPrefix(rest, `\(`) {
				s.open(mdMath, i, i+2, `\)`)
				return
			}
			if len(rest) > 1 {
				s.pos += 2
			} else {
				s.pos++
			}

		case c == '$':
			if strings.HasPrefix(rest, "$$") {
				s.open(mdMath, i, i+2, "$$")
				return
			}
			s.open(mdInlineMath, i, i+1, "")
			return

		case c == '`' && s.opts.inlineCode:
			run := runLength(rest, '`')
			if end := inlineCodeEnd(s.src, i+run, run); end > 0 {
				s.protectRange(i, end)
			} else {
				s.pos += run
			}

		case (c == '[' || c == '!') && s.opts.links:
			textStart, closeAt, end, ok := linkAt(s.src, i)
			if !ok {
				s.pos++
				continue
			}
			s.protectRange(i, textStart)
			s.linkClose = closeAt
			s.linkEnd = end

		case c == '<' && s.opts.html:
			if n := htmlTagLength(rest); n > 0 {
				s.protectRange(i, i+n)
			} else {
				s.pos++
			}

		case c == '|' && s.table:
			s.protectRange(i, i+1)

		default:
			s.pos++
		}
	}
}

// lineStart handles fences and line-level markdown syntax at the start of a
// line. It reports whether a fenced block was opened.
func (s *mdScanner) lineStart(i int) bool {
	eol := lineEnd(s.src, i)
	line := s.src[i:eol]
	trimmed := strings.TrimLeft(line, " \t")

	if fence := fenceOpener(trimmed); fence != "" {
		s.open(mdFence, i, nextLine(s.src, i), "")
		s.fence = fence
		return true
	}

	s.table = false
	if !s.opts.structure {
		return false
	}

	s.table = strings.HasPrefix(trimmed, "|")
	if isRule(trimmed) {
		s.protectRange(i, eol)
		return false
	}
	if n := structuralPrefix(line); n > 0 {
		s.protectRange(i, i+n)
	}
	return false
}

func (s *mdScanner) scanFence() {
	for s.pos < len(s.src) {
		line := strings.TrimSpace(s.src[s.pos:lineEnd(s.src, s.pos)])
		next := nextLine(s.src, s.pos)
		if closesFence(line, s.fence) {
			s.close(next)
			return
		}
		s.pos = next
	}
}

// scanMath looks for the closer line by line. A line opening a fenced block
// ends the math region first, so fences always win.
func (s *mdScanner) scanMath() {
	for s.pos < len(s.src) {
		eol := lineEnd(s.src, s.pos)
		if j := strings.Index(s.src[s.pos:eol], s.closer); j >= 0 {
			s.close(s.pos + j + len(s.closer))
			return
		}
		next := nextLine(s.src, s.pos)
		if next < len(s.src) && opensFence(s.src[next:lineEnd(s.src, next)]) {
			s.close(next)
			return
		}
		s.pos = next
	}
}

// scanInlineMath finds the closing $ on the same line. Without one the rest
// of the line is protected and scanning resumes at the newline.
func (s *mdScanner) scanInlineMath() {
	for j := s.pos; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			if j+1 < len(s.src) && s.src[j+1] != '\n' {
				j++
			}
		case '$':
			s.close(j + 1)
			return
		case '\n':
			s.close(j)
			return
		}
	}
	s.pos = len(s.src)
}

func opensFence(line string) bool {
	return fenceOpener(strings.TrimLeft(line, " \t")) != ""
}

// fenceOpener returns the backtick or tilde run opening a fenced block, or "".
func fenceOpener(trimmed string) string {
	for _, ch := range []byte{'`', '~'} {
		if n := runLength(trimmed, ch); n >= 3 {
			return trimmed[:n]
		}
	}
	return ""
}

// closesFence reports whether a trimmed line closes a fence opened by fence:
// it must consist only of the fence character, at least as many times.
func closesFence(line, fence string) bool {
	return len(line) >= len(fence) && runLength(line, fence[0]) == len(line)
}

func runLength(s string, ch byte) int {
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	return n
}

// environment returns the name of a \begin{name} opener at the start of s.
func environment(s string) (string, bool) {
	const begin = `\begin{`
	if !strings.HasPrefix(s, begin) {
		return "", false
	}
	end := strings.IndexByte(s[len(begin):], '}')
	if end <= 0 {
		return "", false
	}
	name := s[len(begin) : len(begin)+end]
	if strings.ContainsAny(name, " \n\\{") {
		return "", false
	}
	return name, true
}

// inlineCodeEnd finds the backtick run of exactly n closing a code span
// that starts at from, on the same line. It returns 0 when there is none.
func inlineCodeEnd(src string, from, n int) int {
	eol := lineEnd(src, from)
	for j := from; j < eol; {
		if src[j] != '`' {
			j++
			continue
		}
		run := runLength(src[j:eol], '`')
		if run == n {
			return j + run
		}
		j += run
	}
	return 0
}

// linkAt recognizes [text](target) or ![alt](target) at i, on one line.
// It returns where the text starts, the index of the closing ] and the end
// of the target.
func linkAt(src string, i int) (textStart, closeAt, end int, ok bool) {
	textStart = i + 1
	if src[i] == '!' {
		if i+1 >= len(src) || src[i+1] != '[' {
			return 0, 0, 0, false
		}
		textStart = i + 2
	}

	eol := lineEnd(src, i)
	depth := 1
	j := textStart
	for ; j < eol; j++ {
		switch src[j] {
		case '\\':
			j++
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			break
		}
	}
	if j >= eol || j+1 >= eol || src[j+1] != '(' {
		return 0, 0, 0, false
	}

	depth = 1
	k := j + 2
	for ; k < eol; k++ {
		switch src[k] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			return textStart, j, k + 1, true
		}
	}
	return 0, 0, 0, false
}

// htmlTagLength returns the length of the HTML tag, comment or autolink at
// the start of s, or 0.
func htmlTagLength(s string) int {
	if len(s) < 2 {
		return 0
	}
	switch c := s[1]; {
	case isASCIILetter(c), c == '!':
	case c == '/' && len(s) > 2 && isASCIILetter(s[2]):
	default:
		return 0
	}

	z := html.NewTokenizer(strings.NewReader(s))
	switch z.Next() {
	case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken,
		html.CommentToken, html.DoctypeToken:
		return len(z.Raw())
	}
	return 0
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isRule reports whether a trimmed line is a thematic break (---, ***, ___).
func isRule(trimmed string) bool {
	trimmed = strings.TrimSpace(trimmed)
	if len(trimmed) < 3 {
		return false
	}
	ch := trimmed[0]
	if ch != '-' && ch != '*' && ch != '_' {
		return false
	}
	count := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case ch:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

// structuralPrefix returns the length of the indentation, quote markers,
// heading marker or list bullet opening a line.
func structuralPrefix(line string) int {
	j := skipBlanks(line, 0)
	for j < len(line) && line[j] == '>' {
		j = skipBlanks(line, j+1)
	}

	if n := runLength(line[j:], '#'); n > 0 && n <= 6 {
		if j+n == len(line) || line[j+n] == ' ' || line[j+n] == '\t' {
			return skipBlanks(line, j+n)
		}
		return j
	}

	if j+1 < len(line) && strings.IndexByte("-*+", line[j]) >= 0 && (line[j+1] == ' ' || line[j+1] == '\t') {
		j = skipBlanks(line, j+1)
		return taskBox(line, j)
	}

	k := j
	for k < len(line) && k-j < 9 && line[k] >= '0' && line[k] <= '9' {
		k++
	}
	if k > j && k+1 < len(line) && (line[k] == '.' || line[k] == ')') && (line[k+1] == ' ' || line[k+1] == '\t') {
		return taskBox(line, skipBlanks(line, k+1))
	}

	return j
}

// taskBox extends a list prefix over a "[ ] " or "[x] " checkbox.
func taskBox(line string, j int) int {
	if len(line) >= j+4 && line[j] == '[' && strings.IndexByte(" xX", line[j+1]) >= 0 && line[j+2] == ']' && line[j+3] == ' ' {
		return skipBlanks(line, j+3)
	}
	return j
}

func skipBlanks(line string, j int) int {
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	return j
}

var _ nbtlai.ContentProcessor = (*MarkdownProcessor)(nil)
