package nbtlai

import "context"

// Backend is the interface for translation providers.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Languages maps canonical language codes to the backend's own codes.
	Languages() map[string]string
	// Limits describes how requests must be sized and paced.
	Limits() Limits
	// Translate returns one translation per request text, in order.
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// Limits describes the request constraints of a backend. Zero means no limit.
type Limits struct {
	MaxBatch          int // texts per request; 1 means one call per span
	MaxChars          int // total characters per request
	RequestsPerMinute int
}

// TranslateRequest contains the parameters for a translation request.
// Language codes are already mapped to the backend's code table.
type TranslateRequest struct {
	Texts      []string
	SourceLang string
	TargetLang string
	Context    string
}
