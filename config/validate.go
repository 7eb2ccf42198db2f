package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/cache"
	"github.com/ZaguanLabs/nbtlai/provider"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if c.Target == "" {
		return errors.New("target language is required (--target or target in the config file)")
	}
	if _, err := nbtlai.CanonicalLanguage(c.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	target, err := nbtlai.CanonicalLanguage(c.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if target == nbtlai.AutoDetect {
		return errors.New("target: auto is only valid as a source language")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if !slices.Contains(provider.Names(), c.Backend) {
		return fmt.Errorf("translator %q not supported (available: %s)", c.Backend, strings.Join(provider.Names(), ", "))
	}
	if c.MyMemory.RequestsPerMinute < 0 {
		return errors.New("mymemory.requests_per_minute must be >= 0")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return errors.New("openai.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be >= 1")
	}
	if c.Retry.DelaySeconds < 0 {
		return errors.New("retry.delay_seconds must be >= 0")
	}
	if c.Retry.MaxDelaySeconds < 0 {
		return errors.New("retry.max_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !slices.Contains(cache.Kinds, c.Cache.Kind) {
		return fmt.Errorf("cache.kind %q not supported (available: %s)", c.Cache.Kind, strings.Join(cache.Kinds, ", "))
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must be >= 0")
	}
	if c.Cache.Kind == "redis" && c.Cache.RedisURL == "" {
		return errors.New("cache.redis_url must be set when cache.kind is redis (or set NBTLAI_REDIS_URL)")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("output.indent must contain only spaces or tabs, got %q", c.Output.Indent)
	}
	return nil
}
