package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/config"
	"github.com/baobao-lyrics/baobao/internal/enhance"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
	"github.com/baobao-lyrics/baobao/internal/transcribe"
)

// loads defaults into the package config for the duration of a test
func useDefaultConfig(t *testing.T) {
	t.Helper()
	loaded, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	prev := cfg
	cfg = loaded
	t.Cleanup(func() { cfg = prev })
}

func lyricSegments() []subtitle.Segment {
	return []subtitle.Segment{
		{
			Text:  "月亮代表我的心",
			Start: 0,
			End:   3 * time.Second,
			Words: []subtitle.Word{
				{Text: "月亮", Start: 0, End: time.Second},
				{Text: "代表", Start: time.Second, End: 2 * time.Second},
				{Text: "我的心", Start: 2 * time.Second, End: 3 * time.Second},
			},
			Pinyin:      "yuè liàng dài biǎo wǒ de xīn",
			Translation: "the moon represents my heart",
		},
		{
			Text:        "你问我爱你有多深",
			Start:       3 * time.Second,
			End:         6 * time.Second,
			Pinyin:      "nǐ wèn wǒ ài nǐ yǒu duō shēn",
			Translation: "you ask me how deep my love is",
		},
	}
}

func TestWriteOutputs(t *testing.T) {
	tests := []struct {
		name     string
		settings outputSettings
		explicit string
		want     []string
	}{
		{
			name:     "primary only",
			settings: outputSettings{},
			want:     []string{"song.srt"},
		},
		{
			name:     "karaoke and lrc",
			settings: outputSettings{Karaoke: true, LRC: true},
			want:     []string{"song.srt", "song.karaoke.srt", "song.lrc"},
		},
		{
			name:     "lrc primary is not written twice",
			settings: outputSettings{Primary: subtitle.FormatLRC, LRC: true},
			want:     []string{"song.lrc"},
		},
		{
			name:     "annotated variants",
			settings: outputSettings{Output: subtitle.OutputLearn, Karaoke: true},
			want:     []string{"song.learn.srt", "song.learn.karaoke.srt"},
		},
		{
			name:     "explicit path replaces the primary only",
			settings: outputSettings{LRC: true},
			explicit: "custom/lyrics.srt",
			want:     []string{"custom/lyrics.srt", "song.lrc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			explicit := ""
			if tt.explicit != "" {
				explicit = filepath.Join(dir, tt.explicit)
			}

			written, err := writeOutputs(lyricSegments(), filepath.Join(dir, "song"), explicit, tt.settings)
			if err != nil {
				t.Fatalf("writeOutputs failed: %v", err)
			}
			if len(written) != len(tt.want) {
				t.Fatalf("wrote %v, want %v", written, tt.want)
			}
			for i, path := range written {
				if want := filepath.Join(dir, tt.want[i]); path != want {
					t.Errorf("file %d = %s, want %s", i, path, want)
				}
				if _, err := os.Stat(path); err != nil {
					t.Errorf("expected %s to exist: %v", path, err)
				}
			}
		})
	}
}

func TestWriteOutputsAnnotatedContent(t *testing.T) {
	dir := t.TempDir()
	written, err := writeOutputs(lyricSegments(), filepath.Join(dir, "song"), "", outputSettings{
		Output: subtitle.OutputFull,
		LRC:    true,
	})
	if err != nil {
		t.Fatalf("writeOutputs failed: %v", err)
	}

	srt, err := os.ReadFile(written[0])
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "月亮代表我的心\nyuè liàng dài biǎo wǒ de xīn\n(the moon represents my heart)") {
		t.Errorf("srt missing annotated block:\n%s", srt)
	}

	lrc, err := os.ReadFile(written[1])
	if err != nil {
		t.Fatalf("read lrc: %v", err)
	}
	if !strings.HasPrefix(string(lrc), "[00:00.00]月亮代表我的心 / ") {
		t.Errorf("unexpected lrc:\n%s", lrc)
	}
}

func TestCountWordTimed(t *testing.T) {
	if got := countWordTimed(lyricSegments()); got != 1 {
		t.Errorf("countWordTimed = %d, want 1", got)
	}
	if got := countWordTimed(nil); got != 0 {
		t.Errorf("countWordTimed(nil) = %d, want 0", got)
	}
}

func newTranscribeFlagsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addTranscribeFlags(cmd)
	cmd.Flags().BoolP("karaoke", "k", false, "")
	cmd.Flags().Bool("lrc", false, "")
	return cmd
}

func TestTranscribeSettingsFromFlags(t *testing.T) {
	useDefaultConfig(t)
	t.Setenv("GEMINI_API_KEY", "gemini-test")

	tests := []struct {
		name  string
		flags map[string]string
		check func(t *testing.T, s transcribeSettings)
	}{
		{
			name: "config defaults",
			check: func(t *testing.T, s transcribeSettings) {
				if s.Provider != transcribe.ProviderWhisper {
					t.Errorf("provider = %s, want whisper", s.Provider)
				}
				if s.BaseURL != config.DefaultWhisperURL {
					t.Errorf("base url = %q, want %q", s.BaseURL, config.DefaultWhisperURL)
				}
				if s.ChunkMinutes != 5 || s.Concurrency != 3 {
					t.Errorf("chunking = %d min x %d, want 5 x 3", s.ChunkMinutes, s.Concurrency)
				}
			},
		},
		{
			name:  "provider switch resets model and endpoint",
			flags: map[string]string{"provider": "gemini"},
			check: func(t *testing.T, s transcribeSettings) {
				if s.Provider != transcribe.ProviderGemini {
					t.Errorf("provider = %s, want gemini", s.Provider)
				}
				if s.APIKey != "gemini-test" {
					t.Errorf("api key = %q, want gemini-test", s.APIKey)
				}
				if s.BaseURL != "" || s.Model != "" {
					t.Errorf("expected empty base url and model, got %q %q", s.BaseURL, s.Model)
				}
			},
		},
		{
			name: "explicit overrides",
			flags: map[string]string{
				"model":          "large-v3",
				"base-url":       "http://gpu-box:8000/v1",
				"language":       "yue",
				"prompt":         "周杰伦",
				"chunk-duration": "2",
				"concurrency":    "6",
			},
			check: func(t *testing.T, s transcribeSettings) {
				if s.Model != "large-v3" || s.BaseURL != "http://gpu-box:8000/v1" {
					t.Errorf("model/base url not applied: %+v", s)
				}
				if s.Language != "yue" || s.Prompt != "周杰伦" {
					t.Errorf("language/prompt not applied: %+v", s)
				}
				if s.ChunkMinutes != 2 || s.Concurrency != 6 {
					t.Errorf("chunking not applied: %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTranscribeFlagsCommand()
			for name, value := range tt.flags {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatalf("set %s: %v", name, err)
				}
			}
			s, err := transcribeSettingsFromFlags(cmd)
			if err != nil {
				t.Fatalf("transcribeSettingsFromFlags failed: %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestTranscribeSettingsFromFlagsInvalidProvider(t *testing.T) {
	useDefaultConfig(t)
	cmd := newTranscribeFlagsCommand()
	_ = cmd.Flags().Set("provider", "deepgram")
	if _, err := transcribeSettingsFromFlags(cmd); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOutputFlags(t *testing.T) {
	useDefaultConfig(t)

	cmd := newTranscribeFlagsCommand()
	karaoke, lrc := outputFlags(cmd)
	if !karaoke || !lrc {
		t.Errorf("defaults = %v %v, want config values true true", karaoke, lrc)
	}

	_ = cmd.Flags().Set("karaoke", "false")
	karaoke, lrc = outputFlags(cmd)
	if karaoke || !lrc {
		t.Errorf("after --karaoke=false got %v %v, want false true", karaoke, lrc)
	}
}

func TestEnhanceSettingsFromFlags(t *testing.T) {
	useDefaultConfig(t)
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-test")

	cmd := &cobra.Command{Use: "test"}
	addEnhanceFlags(cmd)

	s, err := enhanceSettingsFromFlags(cmd)
	if err != nil {
		t.Fatalf("enhanceSettingsFromFlags failed: %v", err)
	}
	if s.Provider != enhance.ProviderOllama || s.Format != subtitle.OutputFull || !s.UseCache {
		t.Errorf("unexpected defaults: %+v", s)
	}

	_ = cmd.Flags().Set("llm-provider", "anthropic")
	_ = cmd.Flags().Set("format", "learn")
	_ = cmd.Flags().Set("no-cache", "true")
	s, err = enhanceSettingsFromFlags(cmd)
	if err != nil {
		t.Fatalf("enhanceSettingsFromFlags failed: %v", err)
	}
	if s.Provider != enhance.ProviderAnthropic {
		t.Errorf("provider = %s, want anthropic", s.Provider)
	}
	if s.Model != "" {
		t.Errorf("model from another provider carried over: %q", s.Model)
	}
	if s.APIKey != "anthropic-test" {
		t.Errorf("api key = %q, want anthropic-test", s.APIKey)
	}
	if s.Format != subtitle.OutputLearn || s.UseCache {
		t.Errorf("format/cache flags not applied: %+v", s)
	}

	_ = cmd.Flags().Set("format", "poem")
	if _, err := enhanceSettingsFromFlags(cmd); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestUniquePhrases(t *testing.T) {
	segs := []subtitle.Segment{
		{Text: "我爱你"},
		{Text: "我爱你 "},
		{Text: "<font color=\"#00ff00\">我</font>爱你"},
		{Text: "你爱我"},
	}
	if got := uniquePhrases(segs); got != 2 {
		t.Errorf("uniquePhrases = %d, want 2", got)
	}
}
