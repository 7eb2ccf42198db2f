package processor

import (
	"strings"
	"testing"

	"github.com/ZaguanLabs/nbtlai"
)

// upper reassembles spans, upper-casing the translatable ones.
func upper(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Translatable() {
			b.WriteString(strings.ToUpper(s.Text))
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func translatable(spans []Span) []string {
	return nbtlai.TranslatableTexts(spans)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMarkdownProcessor_Partition(t *testing.T) {
	p := NewMarkdownProcessor()

	inputs := []string{
		"",
		"Hello",
		"Use $x^2$ to compute.\n```\ncode here\n```\nDone.",
		"# Title\n\n- item one\n- item two\n\n1. first\n> quoted *text*\n",
		"Text with `code` and [a link](http://x.y/(z)) and ![img](a.png).",
		"<div align=\"center\">Centered</div>\n<!-- note -->\n",
		"Unterminated $math and more",
		"```python\nprint('x')\n",
		"| a | b |\n|---|---|\n| one | two |\n",
		"\\begin{equation}\nE = mc^2\n\\end{equation}\nAfter.",
		"Escaped \\$5 and \\`tick\\`",
		"Ünïcödé ✓ text — with dashes\n\n\n",
		"***\n___\n- [x] done\n- [ ] todo\n",
		"`unclosed code and text",
		"[unclosed link](",
		"a <b and some text",
		"\\",
		"$",
		"Set the price to $5.\n```bash\necho $HOME\nls -la\n```\nThen run it.",
		"It costs $5 today.\n\nThe area is $r^2$ here.",
		"Sum $$a + b\n```\ncode $$ here\n```\nAfter.",
		"\\begin{align}\nx\n~~~\ny\n~~~\n",
		"ends with $\\\nnext",
	}

	for _, in := range inputs {
		spans := p.Classify(in)
		if got := nbtlai.JoinSpans(spans); got != in {
			t.Errorf("JoinSpans(Classify(%q)) = %q", in, got)
		}
		for i, s := range spans {
			if s.Text == "" {
				t.Errorf("Classify(%q): empty span at %d", in, i)
			}
			if i > 0 && spans[i-1].Kind == s.Kind {
				t.Errorf("Classify(%q): adjacent spans of kind %s at %d", in, s.Kind, i)
			}
		}
	}
}

func TestMarkdownProcessor_MathAndFence(t *testing.T) {
	p := NewMarkdownProcessor()

	src := "Use $x^2$ to compute.\n```\ncode here\n```\nDone."
	want := "USE $x^2$ TO COMPUTE.\n```\ncode here\n```\nDONE."

	if got := upper(p.Classify(src)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarkdownProcessor_Protected(t *testing.T) {
	p := NewMarkdownProcessor()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"heading", "## Getting started", "## GETTING STARTED"},
		{"bullets", "- first item\n* second item", "- FIRST ITEM\n* SECOND ITEM"},
		{"ordered", "12. twelfth", "12. TWELFTH"},
		{"quote", "> wise words", "> WISE WORDS"},
		{"task", "- [x] done it", "- [x] DONE IT"},
		{"rule", "above\n---\nbelow", "ABOVE\n---\nBELOW"},
		{"display math", "see $$\\sum_i x_i$$ here", "SEE $$\\sum_i x_i$$ HERE"},
		{"bracket math", "see \\[a+b\\] and \\(c\\) ok", "SEE \\[a+b\\] AND \\(c\\) OK"},
		{"environment", "\\begin{align}\na &= b\n\\end{align}\nthen", "\\begin{align}\na &= b\n\\end{align}\nTHEN"},
		{"inline code", "call `np.sum` now", "CALL `np.sum` NOW"},
		{"double backticks", "a ``x ` y`` b", "A ``x ` y`` B"},
		{"link", "read [the docs](https://docs.example.com/a_b) please", "READ [THE DOCS](https://docs.example.com/a_b) PLEASE"},
		{"image", "![a chart](img/chart.png)", "![A CHART](img/chart.png)"},
		{"html", "<b>bold</b> move", "<b>BOLD</b> MOVE"},
		{"html attrs", "<img src=\"a.png\" alt=\"x\"/>caption", "<img src=\"a.png\" alt=\"x\"/>CAPTION"},
		{"comment", "<!-- keep me -->text", "<!-- keep me -->TEXT"},
		{"autolink", "go <https://example.com> now", "GO <https://example.com> NOW"},
		{"less than", "a < b holds", "A < B HOLDS"},
		{"table", "| name | value |\n|---|---|", "| NAME | VALUE |\n|---|---|"},
		{"escaped dollar", "costs \\$5 today", "COSTS \\$5 TODAY"},
		{"tilde fence", "~~~\nraw text\n~~~\nafter", "~~~\nraw text\n~~~\nAFTER"},
		{"long fence", "````\n```\ninner\n```\n````\nout", "````\n```\ninner\n```\n````\nOUT"},
		{"indented fence", "  ```\n  code\n  ```\nok", "  ```\n  code\n  ```\nOK"},
		{"numbers only", "42 + 7 = 49", "42 + 7 = 49"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upper(p.Classify(tt.src)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownProcessor_Unterminated(t *testing.T) {
	p := NewMarkdownProcessor()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"fence", "Intro\n```python\nx = 1\nmore text", "INTRO\n```python\nx = 1\nmore text"},
		{"fence at end", "Intro\n```", "INTRO\n```"},
		{"inline math", "Price is $5 and more text", "PRICE IS $5 and more text"},
		{"display math", "Sum $$a + b\nand words", "SUM $$a + b\nand words"},
		{"environment", "Eq \\begin{equation} x", "EQ \\begin{equation} x"},
		{"inline math stops at line end", "It costs $5 today.\n\nThe area is $r^2$ here.", "IT COSTS $5 today.\n\nTHE AREA IS $r^2$ HERE."},
		{"inline math before fence", "Set the price to $5.\n```bash\necho $HOME\nls -la\n```\nThen run it.", "SET THE PRICE TO $5.\n```bash\necho $HOME\nls -la\n```\nTHEN RUN IT."},
		{"display math into fence", "Sum $$a + b\n```\ncode $$ here\n```\nAfter.", "SUM $$a + b\n```\ncode $$ here\n```\nAFTER."},
		{"environment into fence", "Eq \\begin{equation}\nx = 1\n~~~\nraw $$ text\n~~~\nDone.", "EQ \\begin{equation}\nx = 1\n~~~\nraw $$ text\n~~~\nDONE."},
		{"display math across blank line", "Sum $$a\n\nb$$ then", "SUM $$a\n\nb$$ THEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upper(p.Classify(tt.src)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownProcessor_TranslatableRuns(t *testing.T) {
	p := NewMarkdownProcessor()

	got := translatable(p.Classify("# Intro\n\nSome  text here.\n  \n- point\n"))
	want := []string{"Intro", "Some  text here.", "point"}
	if !equalStrings(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarkdownProcessor_WithOptions(t *testing.T) {
	src := "# See `x` at [docs](u) <b>now</b>"

	p := NewMarkdownProcessor(
		WithInlineCode(false),
		WithLinks(false),
		WithHTML(false),
		WithStructure(false),
	)
	got := translatable(p.Classify(src))
	if len(got) != 1 || got[0] != src {
		t.Errorf("expected the whole line as one run, got %q", got)
	}

	p = NewMarkdownProcessor(WithInlineCode(false))
	if got := upper(p.Classify("use `x` here")); got != "USE `X` HERE" {
		t.Errorf("inline code should be translatable when disabled, got %q", got)
	}
}

func TestMarkdownProcessor_CellKind(t *testing.T) {
	if NewMarkdownProcessor().CellKind() != "markdown" {
		t.Error("expected markdown cell kind")
	}
}

func TestClassify_Kinds(t *testing.T) {
	if got := upper(Classify("# hi", "markdown")); got != "# HI" {
		t.Errorf("markdown: got %q", got)
	}
	if got := upper(Classify("x = 1  # hi", "code")); got != "x = 1  # HI" {
		t.Errorf("code: got %q", got)
	}
	spans := Classify("raw text", "raw")
	if len(spans) != 1 || spans[0].Translatable() {
		t.Errorf("raw: expected one protected span, got %+v", spans)
	}
	if Classify("", "raw") != nil {
		t.Error("raw: expected no spans for empty text")
	}
}
