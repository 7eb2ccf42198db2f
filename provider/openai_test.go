package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZaguanLabs/nbtlai"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	req := TranslateRequest{
		TargetLang: "pt-BR",
		SourceLang: "en",
		Context:    "linear regression",
	}

	prompt := p.buildSystemPrompt(req)

	if !strings.Contains(prompt, "Portuguese (Brazil)") {
		t.Error("Prompt should contain target language name")
	}
	if !strings.Contains(prompt, "source language is English") {
		t.Error("Prompt should name the source language")
	}
	if !strings.Contains(prompt, "linear regression") {
		t.Error("Prompt should contain context")
	}
	if !strings.Contains(prompt, "Jupyter notebook") {
		t.Error("Prompt should describe notebook fragments")
	}
}

func TestBuildSystemPrompt_AutoSource(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	prompt := p.buildSystemPrompt(TranslateRequest{TargetLang: "de", SourceLang: "auto"})
	if !strings.Contains(prompt, "Detect the source language") {
		t.Error("Prompt should ask for detection when the source is auto")
	}
}

func TestBuildUserMessage_SimpleArray(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	msg := p.buildUserMessage(TranslateRequest{Texts: []string{"Hello", "World"}})

	if msg != `["Hello","World"]` {
		t.Errorf("Expected JSON array, got: %s", msg)
	}
}

func TestParseResponse(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	tests := []struct {
		name    string
		content string
	}{
		{"translations key", `{"translations": ["Hola", "Mundo"]}`},
		{"direct array", `["Hola", "Mundo"]`},
		{"fallback array key", `{"results": ["Hola", "Mundo"]}`},
		{"fenced", "```json\n{\"translations\": [\"Hola\", \"Mundo\"]}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.parseResponse(tt.content, 2)
			if err != nil {
				t.Fatalf("parseResponse failed: %v", err)
			}
			if len(result) != 2 || result[0] != "Hola" || result[1] != "Mundo" {
				t.Errorf("Unexpected translations: %v", result)
			}
		})
	}
}

func TestParseResponse_CountMismatch(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	_, err := p.parseResponse(`{"translations": ["Hola"]}`, 2)

	var mismatch *nbtlai.CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("Expected CountMismatchError, got %v", err)
	}
}

func TestParseResponse_Invalid(t *testing.T) {
	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test"})

	_, err := p.parseResponse(`not json`, 1)
	if err == nil || nbtlai.IsRetryable(err) {
		t.Errorf("Expected permanent error, got %v", err)
	}
}

func TestOpenAIBackend_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %v", err)
			return
		}

		var texts []string
		_ = json.Unmarshal([]byte(req.Messages[1].Content), &texts)
		for i := range texts {
			texts[i] = strings.ToUpper(texts[i])
		}
		content, _ := json.Marshal(map[string][]string{"translations": texts})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": string(content)},
			}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	got, err := p.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"hello", "world"},
		SourceLang: "en",
		TargetLang: "fr",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(got) != 2 || got[0] != "HELLO" || got[1] != "WORLD" {
		t.Errorf("Unexpected translations: %v", got)
	}
}

func TestOpenAIBackend_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIBackend(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"x"}, TargetLang: "fr"})
	if !nbtlai.IsRetryable(err) {
		t.Errorf("Expected retryable error, got %v", err)
	}
}

func TestIsRetryableMessage(t *testing.T) {
	if !isRetryableMessage(errors.New("dial tcp: connection refused")) {
		t.Error("connection refused should be retryable")
	}
	if isRetryableMessage(errors.New("invalid api key")) {
		t.Error("invalid key should not be retryable")
	}
}
