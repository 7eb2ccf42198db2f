package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ZaguanLabs/nbtlai"
)

// MyMemoryMaxChars is the longest text the MyMemory API accepts per call.
const MyMemoryMaxChars = 500

// myMemoryLanguages maps canonical codes to the locale codes MyMemory expects.
var myMemoryLanguages = map[string]string{
	"af":    "af-ZA",
	"ar":    "ar-SA",
	"bg":    "bg-BG",
	"bn":    "bn-IN",
	"ca":    "ca-ES",
	"cs":    "cs-CZ",
	"da":    "da-DK",
	"de":    "de-DE",
	"el":    "el-GR",
	"en":    "en-GB",
	"en-GB": "en-GB",
	"en-US": "en-US",
	"es":    "es-ES",
	"es-MX": "es-MX",
	"et":    "et-EE",
	"fa":    "fa-IR",
	"fi":    "fi-FI",
	"fr":    "fr-FR",
	"fr-CA": "fr-CA",
	"he":    "he-IL",
	"hi":    "hi-IN",
	"hr":    "hr-HR",
	"hu":    "hu-HU",
	"id":    "id-ID",
	"it":    "it-IT",
	"ja":    "ja-JP",
	"ko":    "ko-KR",
	"lt":    "lt-LT",
	"lv":    "lv-LV",
	"ms":    "ms-MY",
	"nb":    "nb-NO",
	"nl":    "nl-NL",
	"pl":    "pl-PL",
	"pt":    "pt-PT",
	"pt-BR": "pt-BR",
	"pt-PT": "pt-PT",
	"ro":    "ro-RO",
	"ru":    "ru-RU",
	"sk":    "sk-SK",
	"sl":    "sl-SI",
	"sr":    "sr-Latn-RS",
	"sv":    "sv-SE",
	"sw":    "sw-KE",
	"ta":    "ta-IN",
	"th":    "th-TH",
	"tr":    "tr-TR",
	"uk":    "uk-UA",
	"ur":    "ur-PK",
	"vi":    "vi-VN",
	"zh":    "zh-CN",
	"zh-CN": "zh-CN",
	"zh-TW": "zh-TW",
}

// MyMemoryConfig holds configuration for the MyMemory backend.
type MyMemoryConfig struct {
	Email             string       // Raises the anonymous daily quota (optional)
	Endpoint          string       // Default: https://api.mymemory.translated.net/get
	RequestsPerMinute int          // Default: 10
	HTTPClient        *http.Client // Default: 30s timeout
}

// MyMemoryBackend implements Backend using the MyMemory HTTP API.
// It translates one text per call; longer texts are split at whitespace.
type MyMemoryBackend struct {
	client   *http.Client
	endpoint string
	email    string
	rpm      int
}

// NewMyMemoryBackend creates a MyMemory backend.
func NewMyMemoryBackend(cfg MyMemoryConfig) *MyMemoryBackend {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.mymemory.translated.net/get"
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &MyMemoryBackend{
		client:   client,
		endpoint: endpoint,
		email:    cfg.Email,
		rpm:      rpm,
	}
}

// Name returns "mymemory".
func (m *MyMemoryBackend) Name() string {
	return "mymemory"
}

// Languages implements Backend.
func (m *MyMemoryBackend) Languages() map[string]string {
	return myMemoryLanguages
}

// Limits implements Backend.
func (m *MyMemoryBackend) Limits() Limits {
	return Limits{MaxBatch: 1, MaxChars: MyMemoryMaxChars, RequestsPerMinute: m.rpm}
}

// Translate translates each text with one call per piece of at most
// MyMemoryMaxChars characters.
func (m *MyMemoryBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		var b strings.Builder
		for _, piece := range splitText(text, MyMemoryMaxChars) {
			if strings.TrimSpace(piece.text) == "" {
				b.WriteString(piece.text)
				b.WriteString(piece.sep)
				continue
			}
			translated, err := m.translateOne(ctx, piece.text, req.SourceLang, req.TargetLang)
			if err != nil {
				return nil, err
			}
			b.WriteString(translated)
			b.WriteString(piece.sep)
		}
		out[i] = b.String()
	}
	return out, nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
	QuotaFinished   bool            `json:"quotaFinished"`
}

// status returns responseStatus, which the API sends as a number or a string.
func (r *myMemoryResponse) status() int {
	s := strings.Trim(string(r.ResponseStatus), `"`)
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return code
}

func (m *MyMemoryBackend) translateOne(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", source+"|"+target)
	if m.email != "" {
		q.Set("de", m.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return "", &nbtlai.ProviderError{Backend: m.Name(), Message: "create request", Cause: err}
	}
	httpReq.Header.Set("User-Agent", nbtlai.UserAgent())

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", &nbtlai.ProviderError{
			Backend:   m.Name(),
			Message:   "request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &nbtlai.ProviderError{Backend: m.Name(), Message: "read response", Cause: err, Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &nbtlai.ProviderError{
			Backend:   m.Name(),
			Message:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Retryable: isRetryableStatus(resp.StatusCode),
		}
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &nbtlai.ProviderError{Backend: m.Name(), Message: "invalid response", Cause: err}
	}

	if code := parsed.status(); code != 0 && code != http.StatusOK {
		return "", &nbtlai.ProviderError{
			Backend:   m.Name(),
			Message:   fmt.Sprintf("status %d: %s", code, parsed.ResponseDetails),
			Retryable: code == http.StatusTooManyRequests || code >= 500,
		}
	}
	if parsed.QuotaFinished {
		return "", &nbtlai.ProviderError{Backend: m.Name(), Message: "daily quota exhausted"}
	}

	return parsed.ResponseData.TranslatedText, nil
}

// textPiece is a part of a long text plus the whitespace that followed it.
type textPiece struct {
	text string
	sep  string
}

// splitText cuts text into pieces of at most limit runes, breaking at
// whitespace where possible. Joining text+sep of every piece yields text.
func splitText(text string, limit int) []textPiece {
	if utf8.RuneCountInString(text) <= limit {
		return []textPiece{{text: text}}
	}

	var pieces []textPiece
	for text != "" {
		if utf8.RuneCountInString(text) <= limit {
			pieces = append(pieces, textPiece{text: text})
			break
		}

		// Byte offset of the rune just past the limit.
		cut := len(text)
		n := 0
		for i := range text {
			if n == limit {
				cut = i
				break
			}
			n++
		}

		end := strings.LastIndexFunc(text[:cut], unicode.IsSpace)
		if end <= 0 {
			pieces = append(pieces, textPiece{text: text[:cut]})
			text = text[cut:]
			continue
		}

		start := end
		for start > 0 {
			r, size := utf8.DecodeLastRuneInString(text[:start])
			if !unicode.IsSpace(r) {
				break
			}
			start -= size
		}
		if start == 0 {
			pieces = append(pieces, textPiece{text: text[:cut]})
			text = text[cut:]
			continue
		}

		_, size := utf8.DecodeRuneInString(text[end:])
		pieces = append(pieces, textPiece{text: text[:start], sep: text[start : end+size]})
		text = text[end+size:]
	}
	return pieces
}

var _ Backend = (*MyMemoryBackend)(nil)
