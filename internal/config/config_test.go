package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/baobao-lyrics/baobao/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "baobao", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}

	if cfg.Transcribe.Provider != "whisper" || cfg.Transcribe.BaseURL != "http://localhost:8000/v1" {
		t.Fatalf("unexpected transcribe defaults: %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.Language != "zh" {
		t.Fatalf("expected zh language default, got %q", cfg.Transcribe.Language)
	}
	if cfg.Enhance.Provider != "ollama" || cfg.Enhance.Model != "qwen3:4b" || cfg.Enhance.OllamaURL != "http://localhost:11434" {
		t.Fatalf("unexpected enhance defaults: %+v", cfg.Enhance)
	}
	if cfg.MinDuration() != 300*time.Millisecond || cfg.MaxDuration() != 7*time.Second {
		t.Fatalf("unexpected timing: %v / %v", cfg.MinDuration(), cfg.MaxDuration())
	}
	if cfg.EnhanceTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.EnhanceTimeout())
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != filepath.Join(tempHome, ".cache", "baobao", "phrases.db") {
		t.Fatalf("unexpected cache: %+v", cfg.Cache)
	}
	if !cfg.Output.Karaoke || !cfg.Output.LRC || cfg.Output.Notify {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
}

func TestLoadFileOverridesAndEnvKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[transcribe]
provider = "OpenAI"
chunk_minutes = 2

[enhance]
provider = "anthropic"
format = "LEARN"
ollama_url = "http://gpu-box:11434/"

[timing]
min_duration_ms = 500
max_duration_ms = 5000

[cache]
path = "~/phrases.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Transcribe.Provider != "openai" || cfg.Transcribe.ChunkMinutes != 2 {
		t.Fatalf("unexpected transcribe: %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.BaseURL != "" {
		t.Fatalf("openai should not inherit the whisper server url, got %q", cfg.Transcribe.BaseURL)
	}
	if cfg.Enhance.Format != "learn" || cfg.Enhance.APIKey != "env-key" {
		t.Fatalf("unexpected enhance: %+v", cfg.Enhance)
	}
	if cfg.Enhance.OllamaURL != "http://gpu-box:11434" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Enhance.OllamaURL)
	}
	if cfg.MinDuration() != 500*time.Millisecond || cfg.MaxDuration() != 5*time.Second {
		t.Fatalf("unexpected timing: %v / %v", cfg.MinDuration(), cfg.MaxDuration())
	}
	if !filepath.IsAbs(cfg.Cache.Path) || strings.HasPrefix(cfg.Cache.Path, "~") {
		t.Fatalf("expected expanded cache path, got %q", cfg.Cache.Path)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"transcribe provider", "[transcribe]\nprovider = \"siri\"\n", "transcribe.provider"},
		{"enhance provider", "[enhance]\nprovider = \"eliza\"\n", "enhance.provider"},
		{"format", "[enhance]\nformat = \"karaoke\"\n", "enhance.format"},
		{"timing order", "[timing]\nmin_duration_ms = 8000\nmax_duration_ms = 7000\n", "exceeds"},
		{"chunk minutes", "[transcribe]\nchunk_minutes = 0\n", "chunk_minutes"},
		{"log level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"syntax", "[enhance\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Enhance.Model != config.Default().Enhance.Model {
		t.Errorf("sample model %q differs from default", parsed.Enhance.Model)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "music") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Errorf("empty path should stay empty, got %q", got)
	}
}
