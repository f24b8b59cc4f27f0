// Package config loads, normalizes, and validates baobao configuration.
//
// It supplies defaults for every pipeline stage, expands user paths, reads
// TOML files, and falls back to provider API keys from the environment
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY). Command flags
// override the loaded values.
package config
