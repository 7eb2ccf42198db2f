package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/nbtlai"
)

// MockBackend is a mock translation backend for testing and dry runs.
type MockBackend struct {
	Translations map[string]string       // Map of source text to translation
	Func         func(text string) string // Used for texts missing from Translations
	FailFirst    int                      // Fail this many calls with a retryable error
	Err          error                    // Returned by every call once FailFirst is used up
	MaxBatch     int                      // Reported in Limits (0: unlimited)
	Langs        map[string]string        // Language table (default: every known code)

	mu          sync.Mutex
	CallCount   int               // Number of times Translate was called
	LastRequest *TranslateRequest // Last request received
	Requests    []TranslateRequest
}

// NewMockBackend creates a new mock backend with default translations.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Translations: map[string]string{
			"Hello":       "Hola",
			"World":       "Mundo",
			"Hello World": "Hola Mundo",
		},
	}
}

// Name returns "mock".
func (m *MockBackend) Name() string {
	return "mock"
}

// Languages implements Backend.
func (m *MockBackend) Languages() map[string]string {
	if m.Langs != nil {
		return m.Langs
	}
	langs := make(map[string]string, len(nbtlai.LanguageNames)+1)
	for code := range nbtlai.LanguageNames {
		langs[code] = code
	}
	langs[nbtlai.AutoDetect] = nbtlai.AutoDetect
	return langs
}

// Limits implements Backend. The mock is local, so the reported rate is
// high enough that a rate limiter never waits in practice.
func (m *MockBackend) Limits() Limits {
	return Limits{MaxBatch: m.MaxBatch, RequestsPerMinute: 60000}
}

// Translate returns mock translations.
func (m *MockBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastRequest = &req
	m.Requests = append(m.Requests, req)

	if m.CallCount <= m.FailFirst {
		return nil, &nbtlai.ProviderError{
			Backend:   m.Name(),
			Message:   fmt.Sprintf("simulated failure %d", m.CallCount),
			Retryable: true,
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		switch translation, ok := m.Translations[text]; {
		case ok:
			results[i] = translation
		case m.Func != nil:
			results[i] = m.Func(text)
		default:
			// Return bracketed text for unknown translations
			results[i] = fmt.Sprintf("[%s]", text)
		}
	}

	return results, nil
}

// Calls returns the number of Translate calls so far.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset resets the call count and recorded requests.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastRequest = nil
	m.Requests = nil
}

// Verify MockBackend implements Backend
var _ Backend = (*MockBackend)(nil)
