// Package provider implements the translation backends.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ZaguanLabs/nbtlai"
)

// Backend is an alias to the main package interface.
type Backend = nbtlai.Backend

// TranslateRequest is an alias to the main package type.
type TranslateRequest = nbtlai.TranslateRequest

// Limits is an alias to the main package type.
type Limits = nbtlai.Limits

// Config holds the settings of every backend. New reads only the section of
// the selected one.
type Config struct {
	Google   GoogleConfig
	MyMemory MyMemoryConfig
	OpenAI   OpenAIConfig

	// HTTPClient is used by backends whose section does not set one.
	HTTPClient *http.Client
}

var constructors = map[string]func(ctx context.Context, cfg Config) (Backend, error){
	"google": func(_ context.Context, cfg Config) (Backend, error) {
		if cfg.Google.HTTPClient == nil {
			cfg.Google.HTTPClient = cfg.HTTPClient
		}
		return NewGoogleBackend(cfg.Google), nil
	},
	"mymemory": func(_ context.Context, cfg Config) (Backend, error) {
		if cfg.MyMemory.HTTPClient == nil {
			cfg.MyMemory.HTTPClient = cfg.HTTPClient
		}
		return NewMyMemoryBackend(cfg.MyMemory), nil
	},
	"openai": func(_ context.Context, cfg Config) (Backend, error) {
		if cfg.OpenAI.HTTPClient == nil {
			cfg.OpenAI.HTTPClient = cfg.HTTPClient
		}
		return NewOpenAIBackend(cfg.OpenAI), nil
	},
	"mock": func(_ context.Context, _ Config) (Backend, error) {
		return NewMockBackend(), nil
	},
}

// Names returns the sorted names New accepts.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the backend registered under name (case-insensitive).
func New(ctx context.Context, name string, cfg Config) (Backend, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("translator %q not supported (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(ctx, cfg)
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// isRetryableMessage matches transient conditions in error text.
func isRetryableMessage(err error) bool {
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// identityLanguages maps each code to itself.
func identityLanguages(codes ...string) map[string]string {
	m := make(map[string]string, len(codes))
	for _, c := range codes {
		m[c] = c
	}
	return m
}
