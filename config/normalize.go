package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Normalize trims and lowercases names, expands paths and restores
// defaults for values left empty.
func (c *Config) Normalize() error {
	c.Source = strings.TrimSpace(c.Source)
	if c.Source == "" {
		c.Source = defaultSource
	}
	c.Target = strings.TrimSpace(c.Target)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = defaultBackend
	}

	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeCode()

	if c.Output.Indent == "" {
		c.Output.Indent = defaultIndent
	}
	return nil
}

func (c *Config) normalizeCache() error {
	c.Cache.Kind = strings.ToLower(strings.TrimSpace(c.Cache.Kind))
	if c.Cache.Kind == "" {
		c.Cache.Kind = defaultCacheKind
	}
	if c.Cache.Kind == "sqlite" && strings.TrimSpace(c.Cache.SQLitePath) == "" {
		c.Cache.SQLitePath = defaultSQLitePath()
	}

	var err error
	if c.Cache.SQLitePath, err = expandPath(strings.TrimSpace(c.Cache.SQLitePath)); err != nil {
		return fmt.Errorf("cache.sqlite_path: %w", err)
	}
	if c.Cache.File, err = expandPath(strings.TrimSpace(c.Cache.File)); err != nil {
		return fmt.Errorf("cache.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeCode() {
	calls := c.Code.MessageCalls[:0:0]
	for _, name := range c.Code.MessageCalls {
		if name = strings.TrimSpace(name); name != "" {
			calls = append(calls, name)
		}
	}
	c.Code.MessageCalls = calls
}

func defaultSQLitePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "nbtlai", defaultSQLiteFile)
	}
	return filepath.Join("~", ".cache", "nbtlai", defaultSQLiteFile)
}
