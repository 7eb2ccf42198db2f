// Package config loads, normalizes, and validates nbtlai settings.
//
// Settings come from built-in defaults, an optional TOML or YAML file, and
// environment fallbacks for credentials (GOOGLE_API_KEY, OPENAI_API_KEY,
// MYMEMORY_EMAIL, NBTLAI_REDIS_URL). Command-line flags are applied on top by
// the caller, which then calls Validate.
//
// The helper methods translate a Config into the option sets of the
// provider, cache and processor packages so callers never map fields by hand.
package config
