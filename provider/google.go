package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"

	"github.com/ZaguanLabs/nbtlai"
)

// googleLanguages maps canonical codes to Cloud Translation v2 codes.
var googleLanguages = func() map[string]string {
	m := identityLanguages(
		"af", "am", "ar", "az", "be", "bg", "bn", "bs", "ca", "ceb", "co", "cs",
		"cy", "da", "de", "el", "en", "eo", "es", "et", "eu", "fa", "fi", "fr",
		"fy", "ga", "gd", "gl", "gu", "ha", "haw", "hi", "hmn", "hr", "ht", "hu",
		"hy", "id", "ig", "is", "it", "ja", "ka", "kk", "km", "kn", "ko", "ku",
		"ky", "la", "lb", "lo", "lt", "lv", "mg", "mi", "mk", "ml", "mn", "mr",
		"ms", "mt", "my", "ne", "nl", "no", "ny", "or", "pa", "pl", "ps", "pt",
		"ro", "ru", "rw", "sd", "si", "sk", "sl", "sm", "sn", "so", "sq", "sr",
		"st", "su", "sv", "sw", "ta", "te", "tg", "th", "tk", "tl", "tr", "tt",
		"ug", "uk", "ur", "uz", "vi", "xh", "yi", "yo", "zu",
	)
	m["auto"] = ""
	m["he"] = "iw"
	m["jv"] = "jw"
	m["nb"] = "no"
	m["fil"] = "tl"
	m["zh"] = "zh-CN"
	m["zh-CN"] = "zh-CN"
	m["zh-TW"] = "zh-TW"
	m["zh-Hans"] = "zh-CN"
	m["zh-Hant"] = "zh-TW"
	m["pt-BR"] = "pt"
	m["pt-PT"] = "pt-PT"
	return m
}()

// GoogleConfig holds configuration for the Google backend.
type GoogleConfig struct {
	APIKey     string       // Cloud Translation API key (application default credentials if empty)
	Endpoint   string       // Custom base URL (optional)
	HTTPClient *http.Client // Custom client (optional)
}

// GoogleBackend implements Backend using the Cloud Translation v2 API.
// The service is created on the first request, so language checks and dry
// runs never need credentials.
type GoogleBackend struct {
	opts []option.ClientOption

	mu  sync.Mutex
	svc *translate.Service
}

// NewGoogleBackend creates a Google backend.
func NewGoogleBackend(cfg GoogleConfig) *GoogleBackend {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &GoogleBackend{opts: opts}
}

func (g *GoogleBackend) service(ctx context.Context) (*translate.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		return g.svc, nil
	}
	svc, err := translate.NewService(ctx, g.opts...)
	if err != nil {
		return nil, err
	}
	svc.UserAgent = nbtlai.UserAgent()
	g.svc = svc
	return svc, nil
}

// Name returns "google".
func (g *GoogleBackend) Name() string {
	return "google"
}

// Languages implements Backend.
func (g *GoogleBackend) Languages() map[string]string {
	return googleLanguages
}

// Limits implements Backend. The API accepts 128 segments per request and
// recommends staying under 5000 characters.
func (g *GoogleBackend) Limits() Limits {
	return Limits{MaxBatch: 128, MaxChars: 5000, RequestsPerMinute: 600}
}

// Translate translates a batch of texts in one call.
func (g *GoogleBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	svc, err := g.service(ctx)
	if err != nil {
		return nil, &nbtlai.ProviderError{
			Backend: g.Name(),
			Message: "create translation service",
			Cause:   err,
		}
	}

	resp, err := svc.Translations.Translate(&translate.TranslateTextRequest{
		Q:      req.Texts,
		Source: req.SourceLang,
		Target: req.TargetLang,
		Format: "text",
	}).Context(ctx).Do()
	if err != nil {
		return nil, &nbtlai.ProviderError{
			Backend:   g.Name(),
			Message:   "translation request failed",
			Cause:     err,
			Retryable: isRetryableGoogleError(err),
		}
	}

	if len(resp.Translations) != len(req.Texts) {
		return nil, &nbtlai.CountMismatchError{Expected: len(req.Texts), Got: len(resp.Translations)}
	}

	out := make([]string, len(resp.Translations))
	for i, t := range resp.Translations {
		out[i] = t.TranslatedText
	}
	return out, nil
}

func isRetryableGoogleError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return isRetryableStatus(gerr.Code)
	}
	return isRetryableMessage(err)
}

var _ Backend = (*GoogleBackend)(nil)
