package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/nbtlai"
)

// OpenAIBackend implements Backend using OpenAI chat completions.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	temperature float32
	languages   map[string]string
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey      string       // OpenAI API key
	Model       string       // Model to use (default: "gpt-4o-mini")
	Temperature float32      // Temperature for generation (default: 0.3)
	BaseURL     string       // Custom base URL (optional)
	HTTPClient  *http.Client // Custom client (optional)
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	languages := make(map[string]string, len(nbtlai.LanguageNames)+1)
	for code := range nbtlai.LanguageNames {
		languages[code] = code
	}
	languages[nbtlai.AutoDetect] = nbtlai.AutoDetect

	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		languages:   languages,
	}
}

// Name returns "openai".
func (p *OpenAIBackend) Name() string {
	return "openai"
}

// Languages implements Backend.
func (p *OpenAIBackend) Languages() map[string]string {
	return p.languages
}

// Limits implements Backend.
func (p *OpenAIBackend) Limits() Limits {
	return Limits{MaxBatch: 50, MaxChars: 8000, RequestsPerMinute: 60}
}

// Translate translates a batch of texts using OpenAI.
func (p *OpenAIBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	systemPrompt := p.buildSystemPrompt(req)
	userMessage := p.buildUserMessage(req)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &nbtlai.ProviderError{
			Backend:   p.Name(),
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableOpenAIError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &nbtlai.ProviderError{
			Backend:   p.Name(),
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIBackend) buildSystemPrompt(req TranslateRequest) string {
	targetName := nbtlai.GetLanguageName(req.TargetLang)

	sourceText := "The source language is " + nbtlai.GetLanguageName(req.SourceLang) + "."
	if req.SourceLang == "" || req.SourceLang == nbtlai.AutoDetect {
		sourceText = "Detect the source language of each text."
	}

	contextText := "The texts come from a Jupyter notebook: prose fragments of markdown cells, code comments and messages printed by code."
	if req.Context != "" {
		contextText += fmt.Sprintf(" The notebook is about: %s.", req.Context)
	}

	return fmt.Sprintf(`# Role
You are an expert technical translator. You translate content to %s with the fluency of a native speaker who also writes code.

# Context
%s
%s

# Task
Translate each provided text into idiomatic %s.

# Rules
- Every text is a fragment. Translate it on its own; never merge, split, drop or reorder texts.
- Keep technical terms, identifiers, file names and numbers unchanged.
- Do NOT add quotes, markdown, explanations or notes.
- Preserve leading and trailing punctuation.

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
- Do NOT wrap in Markdown code blocks.`, targetName, contextText, sourceText, targetName)
}

func (p *OpenAIBackend) buildUserMessage(req TranslateRequest) string {
	data, _ := json.Marshal(req.Texts)
	return string(data)
}

func (p *OpenAIBackend) parseResponse(content string, expectedCount int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	// Try parsing as object first
	var objResult map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if translations, ok := objResult["translations"]; ok {
			if arr, ok := translations.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}

		// Fallback: find first array value
		for _, v := range objResult {
			if arr, ok := v.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	// Try parsing as direct array
	var arrResult []interface{}
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, &nbtlai.ProviderError{
		Backend:   p.Name(),
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

func toStringSlice(arr []interface{}, expectedCount int) ([]string, error) {
	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}

	if len(result) != expectedCount {
		return nil, &nbtlai.CountMismatchError{
			Expected: expectedCount,
			Got:      len(result),
		}
	}

	return result, nil
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isRetryableStatus(reqErr.HTTPStatusCode)
	}
	return isRetryableMessage(err)
}

var _ Backend = (*OpenAIBackend)(nil)
