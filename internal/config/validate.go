package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateEnhance(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscribe() error {
	switch c.Transcribe.Provider {
	case "openai", "whisper", "gemini":
	default:
		return fmt.Errorf("transcribe.provider: unsupported value %q (use openai, whisper, or gemini)", c.Transcribe.Provider)
	}
	if c.Transcribe.ChunkMinutes <= 0 {
		return errors.New("transcribe.chunk_minutes must be positive")
	}
	if c.Transcribe.Concurrency <= 0 {
		return errors.New("transcribe.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateEnhance() error {
	switch c.Enhance.Provider {
	case "ollama", "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("enhance.provider: unsupported value %q (use ollama, openai, anthropic, or gemini)", c.Enhance.Provider)
	}
	switch c.Enhance.Format {
	case "full", "emoji", "learn":
	default:
		return fmt.Errorf("enhance.format: unsupported value %q (use full, emoji, or learn)", c.Enhance.Format)
	}
	if c.Enhance.TimeoutSeconds <= 0 {
		return errors.New("enhance.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Timing.MinDurationMS < 0 {
		return errors.New("timing.min_duration_ms must not be negative")
	}
	if c.Timing.MaxDurationMS <= 0 {
		return errors.New("timing.max_duration_ms must be positive")
	}
	if c.Timing.MinDurationMS > c.Timing.MaxDurationMS {
		return fmt.Errorf("timing.min_duration_ms (%d) exceeds timing.max_duration_ms (%d)",
			c.Timing.MinDurationMS, c.Timing.MaxDurationMS)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("cache.path is required when the cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (use debug, info, warn, or error)", c.Logging.Level)
	}
}
