package nbtlai

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/ZaguanLabs/nbtlai/notebook"
)

// mockBackend translates from a fixed table and records every request.
type mockBackend struct {
	mu           sync.Mutex
	translations map[string]string
	failures     int   // retryable failures before the first success
	err          error // returned on every call when set
	short        bool  // drop the last translation of each request
	failText     string
	limits       Limits
	calls        int
	requests     []TranslateRequest
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		translations: map[string]string{
			"Hello":          "Hola",
			"World":          "Mundo",
			"Translate this": "Traduce esto",
		},
	}
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Languages() map[string]string {
	return map[string]string{
		"auto":  "auto",
		"en":    "en",
		"es":    "es",
		"fr":    "fr",
		"de":    "de",
		"pt":    "pt",
		"pt-BR": "pt-BR",
		"he":    "iw",
	}
}

func (m *mockBackend) Limits() Limits { return m.limits }

func (m *mockBackend) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}
	for _, text := range req.Texts {
		if m.failText != "" && text == m.failText {
			return nil, &ProviderError{Backend: "mock", Message: "rejected text"}
		}
	}
	if m.failures > 0 {
		m.failures--
		return nil, &ProviderError{Backend: "mock", Message: "connection reset", Retryable: true}
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if tr, ok := m.translations[text]; ok {
			results[i] = tr
		} else {
			results[i] = "[" + text + "]"
		}
	}
	if m.short && len(results) > 0 {
		results = results[:len(results)-1]
	}
	return results, nil
}

// mockCache is a map-backed cache.
type mockCache struct {
	data    map[string]string
	setErr  error
	setKeys []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) Get(key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *mockCache) Set(key string, value string) error {
	c.setKeys = append(c.setKeys, key)
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

// lineProcessor marks every non-blank line translatable, except lines
// starting with "//" which are protected with their newline.
type lineProcessor struct {
	kind notebook.CellKind
}

func (p lineProcessor) CellKind() notebook.CellKind { return p.kind }

func (p lineProcessor) Classify(source string) []Span {
	var spans []Span
	for line := range strings.Lines(source) {
		body := strings.TrimSuffix(line, "\n")
		if strings.TrimSpace(body) == "" || strings.HasPrefix(body, "//") {
			spans = append(spans, Span{Kind: SpanProtected, Text: line})
			continue
		}
		spans = append(spans, Span{Kind: SpanTranslatable, Text: body})
		if len(body) < len(line) {
			spans = append(spans, Span{Kind: SpanProtected, Text: "\n"})
		}
	}
	return spans
}

type testCell struct {
	kind   string
	source string
	tags   []string
}

// buildNotebook parses a notebook holding cells.
func buildNotebook(t *testing.T, cells ...testCell) *notebook.Document {
	t.Helper()

	raw := make([]map[string]any, len(cells))
	for i, c := range cells {
		meta := map[string]any{}
		if len(c.tags) > 0 {
			meta["tags"] = c.tags
		}
		raw[i] = map[string]any{
			"cell_type": c.kind,
			"metadata":  meta,
			"source":    notebook.SplitLines(c.source),
		}
	}
	data, err := json.Marshal(map[string]any{
		"cells":          raw,
		"metadata":       map[string]any{},
		"nbformat":       4,
		"nbformat_minor": 5,
	})
	if err != nil {
		t.Fatalf("marshal notebook: %v", err)
	}

	doc, err := notebook.Parse(data)
	if err != nil {
		t.Fatalf("parse notebook: %v", err)
	}
	return doc
}

func sources(doc *notebook.Document) []string {
	out := make([]string, len(doc.Cells))
	for i, c := range doc.Cells {
		out[i] = c.Source
	}
	return out
}
