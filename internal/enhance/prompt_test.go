package enhance

import (
	"errors"
	"strings"
	"testing"

	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name        string
		format      subtitle.OutputFormat
		response    string
		pinyin      string
		translation string
		tip         string
		words       int
	}{
		{
			name:        "plain object",
			format:      subtitle.OutputFull,
			response:    `{"pinyin": "nǐ hǎo", "english": "hello", "word_details": [{"char": "你", "pinyin": "nǐ", "english": "you"}, {"char": "好", "pinyin": "hǎo", "english": "good"}]}`,
			pinyin:      "nǐ hǎo",
			translation: "hello",
			words:       2,
		},
		{
			name:        "markdown fence and chatter",
			format:      subtitle.OutputEmoji,
			response:    "Sure! Here it is:\n```json\n{\"pinyin\": \"tài yáng\", \"english\": \"☀️ sun\"}\n```",
			pinyin:      "tài yáng",
			translation: "☀️ sun",
		},
		{
			name:        "thinking block",
			format:      subtitle.OutputFull,
			response:    "<think>{\"pinyin\": \"wrong\"}</think>{\"pinyin\": \"shì jiè\", \"translation\": \"world\"}",
			pinyin:      "shì jiè",
			translation: "world",
		},
		{
			name:        "nested wrapper",
			format:      subtitle.OutputFull,
			response:    `{"result": {"pinyin": "zài jiàn", "english": "goodbye"}}`,
			pinyin:      "zài jiàn",
			translation: "goodbye",
		},
		{
			name:        "learn fields",
			format:      subtitle.OutputLearn,
			response:    `{"pinyin_spaced": "nǐ hǎo", "literal_gloss": "you good", "natural_english": "hello", "sing_along_tip": "🎵 knee how"}`,
			pinyin:      "nǐ hǎo",
			translation: "hello",
			tip:         "🎵 knee how",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnnotation(tt.response, tt.format)
			if err != nil {
				t.Fatalf("ParseAnnotation failed: %v", err)
			}
			if a.Pinyin != tt.pinyin || a.Translation != tt.translation || a.Tip != tt.tip {
				t.Errorf("got %+v", a)
			}
			if len(a.Words) != tt.words {
				t.Errorf("expected %d word details, got %d", tt.words, len(a.Words))
			}
		})
	}
}

func TestParseAnnotationRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"no json", "I cannot help with that."},
		{"missing translation", `{"pinyin": "nǐ hǎo"}`},
		{"blank pinyin", `{"pinyin": "  ", "english": "hello"}`},
		{"wrong type", `{"pinyin": 42, "english": "hello"}`},
		{"array", `[{"index": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnnotation(tt.response, subtitle.OutputFull)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	for _, format := range []subtitle.OutputFormat{subtitle.OutputFull, subtitle.OutputEmoji, subtitle.OutputLearn} {
		prompt := BuildPrompt(format, "你好")
		if !strings.Contains(prompt, "Chinese: 你好") {
			t.Errorf("%s: phrase missing from prompt", format)
		}
	}
	if !strings.Contains(BuildPrompt(subtitle.OutputLearn, "你好"), "sing_along_tip") {
		t.Error("learn prompt should ask for a tip")
	}
	if !strings.Contains(BuildPrompt(subtitle.OutputEmoji, "你好"), "emoji") {
		t.Error("emoji prompt should ask for emojis")
	}

	extra := buildPrompt(Options{Format: subtitle.OutputFull, Prompt: "British spelling"}, "你好")
	if !strings.HasSuffix(extra, "Additional instructions: British spelling") {
		t.Errorf("extra instructions not appended: %q", extra)
	}
}

func TestFixInvalidEscapes(t *testing.T) {
	got := fixInvalidEscapes(`{"english": "line\Nbreak \"q\""}`)
	want := `{"english": "line\\Nbreak \"q\""}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
