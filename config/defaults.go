package config

import "github.com/ZaguanLabs/nbtlai/processor"

const (
	defaultSource            = "en"
	defaultBackend           = "google"
	defaultAttempts          = 3
	defaultDelaySeconds      = 10
	defaultMaxDelaySeconds   = 120
	defaultCacheKind         = "none"
	defaultSQLiteFile        = "translations.db"
	defaultMyMemoryRPM       = 10
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultOpenAITemperature = 0.3
	defaultIndent            = " "
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Source:  defaultSource,
		Backend: defaultBackend,
		Retry: Retry{
			Attempts:        defaultAttempts,
			DelaySeconds:    defaultDelaySeconds,
			MaxDelaySeconds: defaultMaxDelaySeconds,
		},
		Cache: Cache{
			Kind: defaultCacheKind,
		},
		MyMemory: MyMemory{
			RequestsPerMinute: defaultMyMemoryRPM,
		},
		OpenAI: OpenAI{
			Model:       defaultOpenAIModel,
			Temperature: defaultOpenAITemperature,
		},
		Markdown: Markdown{
			InlineCode: true,
			Links:      true,
			HTML:       true,
			Structure:  true,
		},
		Code: Code{
			MessageCalls: []string{"print"},
			SkipPrefixes: append([]string(nil), processor.DefaultSkipPrefixes...),
		},
		Output: Output{
			Indent: defaultIndent,
		},
	}
}
