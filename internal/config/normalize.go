package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTranscribe()
	c.normalizeEnhance()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.Provider = strings.ToLower(strings.TrimSpace(c.Transcribe.Provider))
	if c.Transcribe.Provider == "" {
		c.Transcribe.Provider = defaultTranscribeProvider
	}
	c.Transcribe.Model = strings.TrimSpace(c.Transcribe.Model)
	c.Transcribe.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcribe.BaseURL), "/")
	if c.Transcribe.Provider == "whisper" && c.Transcribe.BaseURL == "" {
		c.Transcribe.BaseURL = DefaultWhisperURL
	}
	c.Transcribe.Language = strings.TrimSpace(c.Transcribe.Language)

	c.Transcribe.APIKey = strings.TrimSpace(c.Transcribe.APIKey)
	if c.Transcribe.APIKey == "" {
		c.Transcribe.APIKey = APIKeyFromEnv(c.Transcribe.Provider)
	}
}

func (c *Config) normalizeEnhance() {
	c.Enhance.Provider = strings.ToLower(strings.TrimSpace(c.Enhance.Provider))
	if c.Enhance.Provider == "" {
		c.Enhance.Provider = defaultEnhanceProvider
	}
	c.Enhance.Model = strings.TrimSpace(c.Enhance.Model)
	c.Enhance.OllamaURL = strings.TrimRight(strings.TrimSpace(c.Enhance.OllamaURL), "/")
	if c.Enhance.OllamaURL == "" {
		c.Enhance.OllamaURL = defaultOllamaURL
	}
	c.Enhance.Format = strings.ToLower(strings.TrimSpace(c.Enhance.Format))
	if c.Enhance.Format == "" {
		c.Enhance.Format = defaultOutputFormat
	}
	if c.Enhance.Retries < 0 {
		c.Enhance.Retries = 0
	}
	c.Enhance.Prompt = strings.TrimSpace(c.Enhance.Prompt)

	c.Enhance.APIKey = strings.TrimSpace(c.Enhance.APIKey)
	if c.Enhance.APIKey == "" {
		c.Enhance.APIKey = APIKeyFromEnv(c.Enhance.Provider)
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// APIKeyFromEnv returns the conventional environment API key for a provider.
func APIKeyFromEnv(provider string) string {
	var name string
	switch provider {
	case "openai", "whisper":
		name = "OPENAI_API_KEY"
	case "anthropic":
		name = "ANTHROPIC_API_KEY"
	case "gemini":
		name = "GEMINI_API_KEY"
	default:
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}
