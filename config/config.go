package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/cache"
	"github.com/ZaguanLabs/nbtlai/processor"
	"github.com/ZaguanLabs/nbtlai/provider"
)

// Retry controls how failed backend calls are repeated.
type Retry struct {
	Attempts        int  `toml:"attempts" yaml:"attempts"`
	DelaySeconds    int  `toml:"delay_seconds" yaml:"delay_seconds"`
	MaxDelaySeconds int  `toml:"max_delay_seconds" yaml:"max_delay_seconds"`
	Backoff         bool `toml:"backoff" yaml:"backoff"`
}

// Cache selects the translation cache.
type Cache struct {
	Kind       string `toml:"kind" yaml:"kind"` // none, memory, redis, sqlite
	TTLSeconds int    `toml:"ttl_seconds" yaml:"ttl_seconds"`
	RedisURL   string `toml:"redis_url" yaml:"redis_url"`
	KeyPrefix  string `toml:"key_prefix" yaml:"key_prefix"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path"`
	// File is a JSON export loaded before and saved after a run.
	File       string `toml:"file" yaml:"file"`
}

// Google contains Cloud Translation settings.
type Google struct {
	APIKey   string `toml:"api_key" yaml:"api_key"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
}

// MyMemory contains MyMemory API settings.
type MyMemory struct {
	Email             string `toml:"email" yaml:"email"`
	Endpoint          string `toml:"endpoint" yaml:"endpoint"`
	RequestsPerMinute int    `toml:"requests_per_minute" yaml:"requests_per_minute"`
}

// OpenAI contains chat completion settings.
type OpenAI struct {
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	Model       string  `toml:"model" yaml:"model"`
	BaseURL     string  `toml:"base_url" yaml:"base_url"`
	Temperature float32 `toml:"temperature" yaml:"temperature"`
}

// Markdown toggles the markdown protections.
type Markdown struct {
	InlineCode bool `toml:"inline_code" yaml:"inline_code"`
	Links      bool `toml:"links" yaml:"links"`
	HTML       bool `toml:"html" yaml:"html"`
	Structure  bool `toml:"structure" yaml:"structure"`
}

// Code controls which parts of code cells are translated.
type Code struct {
	MessageCalls []string `toml:"message_calls" yaml:"message_calls"`
	PlainStrings bool     `toml:"plain_strings" yaml:"plain_strings"`
	SkipPrefixes []string `toml:"skip_prefixes" yaml:"skip_prefixes"`
}

// Output controls how translated notebooks are written.
type Output struct {
	Indent string `toml:"indent" yaml:"indent"`
	Rename bool   `toml:"rename" yaml:"rename"`
}

// Config encapsulates all configuration values for nbtlai.
type Config struct {
	Source  string `toml:"source" yaml:"source"`
	Target  string `toml:"target" yaml:"target"`
	Backend string `toml:"backend" yaml:"backend"`
	Print   bool   `toml:"print" yaml:"print"`

	Retry    Retry    `toml:"retry" yaml:"retry"`
	Cache    Cache    `toml:"cache" yaml:"cache"`
	Google   Google   `toml:"google" yaml:"google"`
	MyMemory MyMemory `toml:"mymemory" yaml:"mymemory"`
	OpenAI   OpenAI   `toml:"openai" yaml:"openai"`
	Markdown Markdown `toml:"markdown" yaml:"markdown"`
	Code     Code     `toml:"code" yaml:"code"`
	Output   Output   `toml:"output" yaml:"output"`
}

// Load reads the file at path on top of the defaults and applies the
// environment fallbacks. An empty path yields the defaults. The result is
// normalized but not validated, since flags may still change it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded) // #nosec G304 - path is intentionally user-provided
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := decode(expanded, data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// ApplyEnv fills empty credentials from the environment.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Google.APIKey, "GOOGLE_API_KEY")
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.MyMemory.Email, "MYMEMORY_EMAIL")
	setFromEnv(&c.Cache.RedisURL, "NBTLAI_REDIS_URL")
}

func setFromEnv(field *string, name string) {
	if strings.TrimSpace(*field) != "" {
		return
	}
	if value, ok := os.LookupEnv(name); ok {
		*field = strings.TrimSpace(value)
	}
}

// RetryConfig returns the retry policy for the translator.
func (c *Config) RetryConfig() nbtlai.RetryConfig {
	return nbtlai.RetryConfig{
		Attempts: c.Retry.Attempts,
		Delay:    seconds(c.Retry.DelaySeconds),
		MaxDelay: seconds(c.Retry.MaxDelaySeconds),
		Backoff:  c.Retry.Backoff,
	}
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// ProviderConfig returns the backend settings.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Google: provider.GoogleConfig{
			APIKey:   c.Google.APIKey,
			Endpoint: c.Google.Endpoint,
		},
		MyMemory: provider.MyMemoryConfig{
			Email:             c.MyMemory.Email,
			Endpoint:          c.MyMemory.Endpoint,
			RequestsPerMinute: c.MyMemory.RequestsPerMinute,
		},
		OpenAI: provider.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			Model:       c.OpenAI.Model,
			BaseURL:     c.OpenAI.BaseURL,
			Temperature: c.OpenAI.Temperature,
		},
	}
}

// CacheConfig returns the cache store settings.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Kind:       c.Cache.Kind,
		TTL:        c.Cache.TTLSeconds,
		RedisURL:   c.Cache.RedisURL,
		KeyPrefix:  c.Cache.KeyPrefix,
		SQLitePath: c.Cache.SQLitePath,
	}
}

// Processors returns the markdown and code classifiers.
func (c *Config) Processors() []nbtlai.ContentProcessor {
	return []nbtlai.ContentProcessor{
		processor.NewMarkdownProcessor(
			processor.WithInlineCode(c.Markdown.InlineCode),
			processor.WithLinks(c.Markdown.Links),
			processor.WithHTML(c.Markdown.HTML),
			processor.WithStructure(c.Markdown.Structure),
		),
		processor.NewCodeProcessor(
			processor.WithMessageCalls(c.Code.MessageCalls...),
			processor.WithPlainStrings(c.Code.PlainStrings),
			processor.WithSkipPrefixes(c.Code.SkipPrefixes...),
		),
	}
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
